package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SessionVerifier checks that a token still belongs to a live session.
type SessionVerifier interface {
	VerifySession(ctx context.Context, userID, token string) bool
}

type JWTAuth struct {
	secret   []byte
	sessions SessionVerifier
	logger   *zap.Logger
}

func NewJWTAuth(secret string, sessions SessionVerifier, logger *zap.Logger) *JWTAuth {
	return &JWTAuth{
		secret:   []byte(secret),
		sessions: sessions,
		logger:   logger.Named("JWTAuth"),
	}
}

// Require rejects requests without a valid bearer token. On success the user
// id, email and role from the claims are placed on the request context.
func (a *JWTAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, token, ok := a.authenticate(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if a.sessions != nil && !a.sessions.VerifySession(r.Context(), claims.UserID, token) {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithClaims(r.Context(), claims)))
	})
}

// Optional attaches identity when a valid token is present but lets
// anonymous requests through untouched.
func (a *JWTAuth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, token, ok := a.authenticate(r); ok {
			if a.sessions == nil || a.sessions.VerifySession(r.Context(), claims.UserID, token) {
				r = r.WithContext(contextWithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin layers an admin role check on top of Require.
func (a *JWTAuth) RequireAdmin(next http.Handler) http.Handler {
	return a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := UserRoleFromContext(r.Context())
		if entity.NormalizeRole(role) != entity.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (a *JWTAuth) authenticate(r *http.Request) (*usecase.Claims, string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "", false
	}
	raw := parts[1]

	claims := &usecase.Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		a.logger.Debug("Token rejected", zap.Error(err))
		return nil, "", false
	}
	return claims, raw, true
}

func contextWithClaims(ctx context.Context, claims *usecase.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	return ctx
}
