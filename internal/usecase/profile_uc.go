package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"go.uber.org/zap"
)

// ProfileUsecase resolves authenticated identities to application profiles,
// creating a profile row on first sight of a user.
type ProfileUsecase struct {
	profileRepo repository.ProfileRepository
	logger      *zap.Logger
}

func NewProfileUsecase(profileRepo repository.ProfileRepository, logger *zap.Logger) *ProfileUsecase {
	return &ProfileUsecase{
		profileRepo: profileRepo,
		logger:      logger.Named("ProfileUsecase"),
	}
}

// Resolve returns the AppUser for an authenticated identity. A missing profile
// row is created on the fly with a name derived from the email and the user
// role. Resolve never fails the caller's request: on any repository error it
// logs and falls back to a non-admin identity built from the token claims, so
// a profile outage can never grant elevated access.
func (uc *ProfileUsecase) Resolve(ctx context.Context, userID, email string) *entity.AppUser {
	fallback := &entity.AppUser{
		ID:    userID,
		Name:  entity.FallbackName(email),
		Email: email,
		Role:  entity.RoleUser,
	}

	profile, err := uc.profileRepo.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		uc.logger.Warn("Failed to load profile, using fallback identity",
			zap.String("user_id", userID), zap.Error(err))
		return fallback
	}

	if profile == nil {
		now := time.Now().UTC()
		if err := uc.profileRepo.Upsert(ctx, &entity.Profile{
			ID:        userID,
			Name:      entity.FallbackName(email),
			Email:     email,
			Role:      entity.RoleUser,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			uc.logger.Warn("Failed to upsert profile, using fallback identity",
				zap.String("user_id", userID), zap.Error(err))
			return fallback
		}

		// Re-read after the upsert: a concurrent insert may have won, and its
		// row (possibly with an admin role set out of band) is authoritative.
		profile, err = uc.profileRepo.GetByID(ctx, userID)
		if err != nil {
			uc.logger.Warn("Failed to re-read profile after upsert, using fallback identity",
				zap.String("user_id", userID), zap.Error(err))
			return fallback
		}
	}

	name := profile.Name
	if name == "" {
		name = entity.FallbackName(email)
	}
	return &entity.AppUser{
		ID:    profile.ID,
		Name:  name,
		Email: email,
		Role:  entity.NormalizeRole(string(profile.Role)),
	}
}
