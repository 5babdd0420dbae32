package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/cache"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("validation failed")
)

// Claims is the JWT payload issued at login and checked by the auth middleware.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthUsecase struct {
	profileRepo repository.ProfileRepository
	cache       cache.CacheRepository
	validate    *validator.Validate
	jwtSecret   []byte
	tokenTTL    time.Duration
	logger      *zap.Logger
}

func NewAuthUsecase(
	profileRepo repository.ProfileRepository,
	cacheRepo cache.CacheRepository,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		profileRepo: profileRepo,
		cache:       cacheRepo,
		validate:    validator.New(),
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		logger:      logger.Named("AuthUsecase"),
	}
}

// Register creates a profile with the user role and returns a session token.
// Admin accounts are never created through this path.
func (uc *AuthUsecase) Register(ctx context.Context, input RegisterInput) (*entity.AppUser, string, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now().UTC()
	profile := &entity.Profile{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Email:     input.Email,
		Password:  input.Password,
		Role:      entity.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", repository.ErrDuplicateEmail
		}
		uc.logger.Error("Failed to create profile", zap.String("email", input.Email), zap.Error(err))
		return nil, "", fmt.Errorf("failed to register: %w", err)
	}

	user := &entity.AppUser{
		ID:    profile.ID,
		Name:  profile.Name,
		Email: profile.Email,
		Role:  profile.Role,
	}
	token, err := uc.issueToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	uc.logger.Info("User registered", zap.String("user_id", user.ID))
	return user, token, nil
}

func (uc *AuthUsecase) Login(ctx context.Context, input LoginInput) (*entity.AppUser, string, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	profile, err := uc.profileRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		uc.logger.Error("Failed to look up profile", zap.String("email", input.Email), zap.Error(err))
		return nil, "", fmt.Errorf("failed to login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(input.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	user := &entity.AppUser{
		ID:    profile.ID,
		Name:  profile.Name,
		Email: profile.Email,
		Role:  entity.NormalizeRole(string(profile.Role)),
	}
	token, err := uc.issueToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	uc.logger.Info("User logged in", zap.String("user_id", user.ID))
	return user, token, nil
}

// Logout drops the cached session token. The JWT itself stays valid until it
// expires; the middleware treats a missing cache entry as a revoked session.
func (uc *AuthUsecase) Logout(ctx context.Context, userID string) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.Delete(ctx, tokenCacheKey(userID)); err != nil {
		uc.logger.Warn("Failed to drop session token", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// VerifySession reports whether the user still has an active cached session.
// With no cache configured every valid JWT is accepted.
func (uc *AuthUsecase) VerifySession(ctx context.Context, userID, token string) bool {
	if uc.cache == nil {
		return true
	}
	cached, err := uc.cache.Get(ctx, tokenCacheKey(userID))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			uc.logger.Warn("Failed to read session token", zap.String("user_id", userID), zap.Error(err))
		}
		return false
	}
	return string(cached) == token
}

func (uc *AuthUsecase) issueToken(ctx context.Context, user *entity.AppUser) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(uc.tokenTTL)),
			Subject:   user.ID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.jwtSecret)
	if err != nil {
		uc.logger.Error("Failed to sign token", zap.String("user_id", user.ID), zap.Error(err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, tokenCacheKey(user.ID), []byte(token), uc.tokenTTL); err != nil {
			uc.logger.Warn("Failed to cache session token", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return token, nil
}

func tokenCacheKey(userID string) string {
	return "token:" + userID
}
