package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"github.com/Corey-Yule/caravan-site/internal/port/storage"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrForbidden = errors.New("operation not permitted")

// MaxListingImages caps how many images a single listing may carry.
const MaxListingImages = 10

// EventPublisher fans listing changes out to interested subscribers.
type EventPublisher interface {
	PublishListingCreated(listingID, title string) error
	PublishListingUpdated(listingID string) error
	PublishListingDeleted(listingID string) error
}

// ListingView is the read model kept in sync with the repository. The usecase
// nudges it after each mutation so readers see changes without waiting for
// the event feed.
type ListingView interface {
	Refresh(ctx context.Context) error
	SetFeaturedID(ctx context.Context, id string)
	ClearFeatured(ctx context.Context)
	FeaturedID() string
}

// ListingMailer notifies owners about activity on their listings.
type ListingMailer interface {
	SendListingCreated(toEmail, listingTitle string) error
}

type CreateListingInput struct {
	Title        string `json:"title" validate:"required,min=3,max=140"`
	Standard     string `json:"standard" validate:"required,oneof=Bronze Silver Gold"`
	Location     string `json:"location" validate:"required,min=2,max=120"`
	ContactName  string `json:"contactName" validate:"required,min=2,max=100"`
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	ContactPhone string `json:"contactPhone" validate:"omitempty,max=40"`
}

// ImageUpload is one image file from a create request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ListingUsecase struct {
	listingRepo repository.ListingRepository
	storage     storage.ObjectStorage
	publisher   EventPublisher
	view        ListingView
	mailer      ListingMailer
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewListingUsecase(
	listingRepo repository.ListingRepository,
	objectStorage storage.ObjectStorage,
	publisher EventPublisher,
	view ListingView,
	mailer ListingMailer,
	logger *zap.Logger,
) *ListingUsecase {
	return &ListingUsecase{
		listingRepo: listingRepo,
		storage:     objectStorage,
		publisher:   publisher,
		view:        view,
		mailer:      mailer,
		validate:    validator.New(),
		logger:      logger.Named("ListingUsecase"),
	}
}

// Create validates the input, uploads images one by one, and inserts the
// listing. Any upload failure aborts the whole create; images uploaded before
// the failure are removed best effort so no orphans accumulate.
func (uc *ListingUsecase) Create(ctx context.Context, user *entity.AppUser, input CreateListingInput, images []ImageUpload) (*entity.Listing, error) {
	if user == nil {
		return nil, ErrForbidden
	}
	if err := uc.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(images) > MaxListingImages {
		return nil, fmt.Errorf("%w: at most %d images per listing", ErrValidation, MaxListingImages)
	}
	standard, ok := entity.ParseStandard(input.Standard)
	if !ok {
		return nil, fmt.Errorf("%w: unknown standard %q", ErrValidation, input.Standard)
	}

	urls, keys, err := uc.uploadAll(ctx, user.ID, images)
	if err != nil {
		if len(keys) > 0 {
			if rmErr := uc.storage.Remove(ctx, keys); rmErr != nil {
				uc.logger.Warn("Failed to clean up partial uploads", zap.Error(rmErr))
			}
		}
		return nil, err
	}

	listing := &entity.Listing{
		Title:        input.Title,
		Standard:     standard,
		Location:     input.Location,
		ContactName:  input.ContactName,
		ContactEmail: input.ContactEmail,
		ContactPhone: input.ContactPhone,
		Images:       urls,
		CreatedAt:    time.Now().UTC(),
		OwnerEmail:   user.Email,
		OwnerID:      user.ID,
	}

	id, err := uc.listingRepo.Create(ctx, listing)
	if err != nil {
		if rmErr := uc.storage.Remove(ctx, keys); rmErr != nil {
			uc.logger.Warn("Failed to clean up uploads after failed insert", zap.Error(rmErr))
		}
		uc.logger.Error("Failed to create listing", zap.Error(err))
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	listing.ID = id

	if uc.publisher != nil {
		if err := uc.publisher.PublishListingCreated(id, listing.Title); err != nil {
			uc.logger.Warn("Failed to publish created event", zap.String("listing_id", id), zap.Error(err))
		}
	}
	if uc.mailer != nil {
		if err := uc.mailer.SendListingCreated(user.Email, listing.Title); err != nil {
			uc.logger.Warn("Failed to send creation email", zap.String("listing_id", id), zap.Error(err))
		}
	}
	uc.refreshView(ctx)

	uc.logger.Info("Listing created", zap.String("listing_id", id), zap.String("owner_id", user.ID))
	return listing, nil
}

// Delete removes a listing, its stored images, and the featured pointer when
// the deleted listing was the featured one. Only the owner or an admin may
// delete. Image cleanup is best effort and never blocks the delete.
func (uc *ListingUsecase) Delete(ctx context.Context, user *entity.AppUser, id string) error {
	if user == nil {
		return ErrForbidden
	}

	listing, err := uc.listingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		uc.logger.Error("Failed to load listing for delete", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if listing.OwnerID != user.ID && !user.IsAdmin() {
		return ErrForbidden
	}

	var keys []string
	for _, url := range listing.Images {
		if key, ok := uc.storage.ObjectKeyFromURL(url); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		if err := uc.storage.Remove(ctx, keys); err != nil {
			uc.logger.Warn("Failed to remove listing images",
				zap.String("listing_id", id), zap.Error(err))
		}
	}

	if err := uc.listingRepo.Delete(ctx, id); err != nil {
		uc.logger.Error("Failed to delete listing", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	if uc.view != nil && uc.view.FeaturedID() == id {
		uc.view.ClearFeatured(ctx)
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishListingDeleted(id); err != nil {
			uc.logger.Warn("Failed to publish deleted event", zap.String("listing_id", id), zap.Error(err))
		}
	}
	uc.refreshView(ctx)

	uc.logger.Info("Listing deleted", zap.String("listing_id", id), zap.String("by", user.ID))
	return nil
}

// SetFeatured makes the given listing the only featured one. Admin only.
// The swap happens in a single repository statement, so there is no window
// where zero or two listings carry the flag.
func (uc *ListingUsecase) SetFeatured(ctx context.Context, user *entity.AppUser, id string) error {
	if !user.IsAdmin() {
		return ErrForbidden
	}

	if err := uc.listingRepo.SetFeatured(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		uc.logger.Error("Failed to set featured listing", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("failed to set featured listing: %w", err)
	}

	if uc.view != nil {
		uc.view.SetFeaturedID(ctx, id)
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishListingUpdated(id); err != nil {
			uc.logger.Warn("Failed to publish updated event", zap.String("listing_id", id), zap.Error(err))
		}
	}
	uc.refreshView(ctx)

	uc.logger.Info("Featured listing changed", zap.String("listing_id", id), zap.String("by", user.ID))
	return nil
}

// uploadAll uploads images sequentially under the owner's prefix and stops at
// the first failure. It returns the keys uploaded so far even on error so the
// caller can clean up.
func (uc *ListingUsecase) uploadAll(ctx context.Context, ownerID string, images []ImageUpload) (urls, keys []string, err error) {
	for _, img := range images {
		key := fmt.Sprintf("%s/%s%s", ownerID, uuid.NewString(), normalizeExt(img.Filename))
		url, upErr := uc.storage.Upload(ctx, key, img.Data, img.ContentType)
		if upErr != nil {
			return nil, keys, fmt.Errorf("failed to upload image %q: %w", img.Filename, upErr)
		}
		urls = append(urls, url)
		keys = append(keys, key)
	}
	return urls, keys, nil
}

func (uc *ListingUsecase) refreshView(ctx context.Context) {
	if uc.view == nil {
		return
	}
	if err := uc.view.Refresh(ctx); err != nil {
		uc.logger.Warn("Failed to refresh listing view", zap.Error(err))
	}
}

func normalizeExt(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || ext == "." {
		return ".jpg"
	}
	return ext
}
