package entity

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// NormalizeRole maps a raw role value to one of the two known roles.
// Anything unrecognized collapses to RoleUser, never to RoleAdmin.
func NormalizeRole(raw string) Role {
	if Role(strings.ToLower(strings.TrimSpace(raw))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Profile is the application-level user record, distinct from the raw
// authentication identity. Password holds the bcrypt hash.
type Profile struct {
	ID        string
	Name      string
	Email     string
	Password  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppUser is the resolved identity handed to handlers and usecases for the
// duration of an authenticated session.
type AppUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *AppUser) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FallbackName derives a display name from an email local-part, for profiles
// created lazily without one.
func FallbackName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	if email != "" {
		return email
	}
	return "User"
}
