package repository

import (
	"context"
	"errors"

	"github.com/Corey-Yule/caravan-site/internal/entity"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) (string, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.Listing, error)
	// FindAll returns every listing ordered by creation time descending.
	FindAll(ctx context.Context) ([]*entity.Listing, error)
	// FindFeaturedID returns the id of the listing with the featured flag set.
	// ErrNotFound means no listing is featured, which is a valid state.
	FindFeaturedID(ctx context.Context) (string, error)
	// SetFeatured makes the given listing the only featured one.
	SetFeatured(ctx context.Context, id string) error
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *entity.Profile) error
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	GetByEmail(ctx context.Context, email string) (*entity.Profile, error)
	// Upsert inserts the profile if no row exists for its id; an existing
	// row is left untouched.
	Upsert(ctx context.Context, profile *entity.Profile) error
}
