// Package store holds the in-memory listing read model. It is refreshed as a
// whole from the repository, either after a local mutation or when a change
// event arrives, so readers always see a consistent snapshot.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/cache"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"go.uber.org/zap"
)

const (
	featuredCacheKey = "featured_listing_id"
	featuredCacheTTL = 5 * time.Minute
)

type ListingStore struct {
	repo   repository.ListingRepository
	cache  cache.CacheRepository
	logger *zap.Logger

	mu         sync.RWMutex
	listings   []*entity.Listing
	featuredID string
}

// NewListingStore builds an empty store. cacheRepo may be nil, in which case
// the featured pointer lives only in memory.
func NewListingStore(repo repository.ListingRepository, cacheRepo cache.CacheRepository, logger *zap.Logger) *ListingStore {
	return &ListingStore{
		repo:   repo,
		cache:  cacheRepo,
		logger: logger.Named("ListingStore"),
	}
}

// Refresh replaces the whole snapshot with the repository's current contents.
// On error the previous snapshot stays in place and keeps serving reads.
func (s *ListingStore) Refresh(ctx context.Context) error {
	listings, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to refresh listings, keeping previous snapshot", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.listings = listings
	s.mu.Unlock()

	s.logger.Debug("Listings refreshed", zap.Int("count", len(listings)))
	return nil
}

// LoadFeatured resolves the featured pointer, preferring the cache over the
// repository. No featured listing is a valid state, not an error.
func (s *ListingStore) LoadFeatured(ctx context.Context) error {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, featuredCacheKey); err == nil {
			s.setFeatured(string(val))
			return nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("Failed to read featured pointer from cache", zap.Error(err))
		}
	}

	id, err := s.repo.FindFeaturedID(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.setFeatured("")
			return nil
		}
		s.logger.Error("Failed to load featured pointer", zap.Error(err))
		return err
	}

	s.setFeatured(id)
	s.cacheFeatured(ctx, id)
	return nil
}

// SetFeaturedID records a new featured pointer locally and in the cache.
func (s *ListingStore) SetFeaturedID(ctx context.Context, id string) {
	s.setFeatured(id)
	s.cacheFeatured(ctx, id)
}

// ClearFeatured drops the featured pointer, locally and from the cache.
func (s *ListingStore) ClearFeatured(ctx context.Context) {
	s.setFeatured("")
	if s.cache != nil {
		if err := s.cache.Delete(ctx, featuredCacheKey); err != nil {
			s.logger.Warn("Failed to drop featured pointer from cache", zap.Error(err))
		}
	}
}

func (s *ListingStore) FeaturedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.featuredID
}

// All returns the current snapshot, newest first.
func (s *ListingStore) All() []*entity.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Filtered narrows the snapshot by standard and by a case-insensitive
// substring match over title, location and contact fields. The standard
// filter accepts entity.StandardAll as a pass-through.
func (s *ListingStore) Filtered(query, standard string) []*entity.Listing {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if standard != "" && standard != entity.StandardAll && string(l.Standard) != standard {
			continue
		}
		if q != "" && !matchesQuery(l, q) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Featured returns the featured listing from the snapshot, or nil when the
// pointer is unset or dangling.
func (s *ListingStore) Featured() *entity.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.featuredID == "" {
		return nil
	}
	for _, l := range s.listings {
		if l.ID == s.featuredID {
			return l
		}
	}
	return nil
}

func (s *ListingStore) setFeatured(id string) {
	s.mu.Lock()
	s.featuredID = id
	s.mu.Unlock()
}

func (s *ListingStore) cacheFeatured(ctx context.Context, id string) {
	if s.cache == nil || id == "" {
		return
	}
	if err := s.cache.Set(ctx, featuredCacheKey, []byte(id), featuredCacheTTL); err != nil {
		s.logger.Warn("Failed to cache featured pointer", zap.Error(err))
	}
}

func matchesQuery(l *entity.Listing, q string) bool {
	for _, field := range []string{l.Title, l.Location, l.ContactName, l.ContactEmail} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
