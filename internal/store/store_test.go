package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/cache"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	listings   []*entity.Listing
	featuredID string
	failAll    error
	failFeat   error
}

func (r *stubRepo) Create(context.Context, *entity.Listing) (string, error) { return "", nil }
func (r *stubRepo) Delete(context.Context, string) error                    { return nil }
func (r *stubRepo) FindByID(context.Context, string) (*entity.Listing, error) {
	return nil, repository.ErrNotFound
}
func (r *stubRepo) SetFeatured(context.Context, string) error { return nil }

func (r *stubRepo) FindAll(context.Context) ([]*entity.Listing, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	return r.listings, nil
}

func (r *stubRepo) FindFeaturedID(context.Context) (string, error) {
	if r.failFeat != nil {
		return "", r.failFeat
	}
	if r.featuredID == "" {
		return "", repository.ErrNotFound
	}
	return r.featuredID, nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func sampleListings() []*entity.Listing {
	return []*entity.Listing{
		{ID: "1", Title: "Swift Challenger", Standard: entity.StandardGold, Location: "Leeds", ContactName: "Sam Price", ContactEmail: "sam@example.com"},
		{ID: "2", Title: "Bailey Unicorn", Standard: entity.StandardSilver, Location: "York", ContactName: "Alex Reed", ContactEmail: "alex@example.com"},
		{ID: "3", Title: "Elddis Avante", Standard: entity.StandardBronze, Location: "Leeds", ContactName: "Chris Fox", ContactEmail: "chris@caravans.co.uk"},
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	repo := &stubRepo{listings: sampleListings()}
	s := NewListingStore(repo, nil, zap.NewNop())

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.All(), 3)

	repo.listings = repo.listings[:1]
	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.All(), 1)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	repo := &stubRepo{listings: sampleListings()}
	s := NewListingStore(repo, nil, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	repo.failAll = errors.New("connection reset")
	assert.Error(t, s.Refresh(context.Background()))
	assert.Len(t, s.All(), 3, "a failed refresh must not wipe the snapshot")
}

func TestFilteredByStandard(t *testing.T) {
	s := NewListingStore(&stubRepo{listings: sampleListings()}, nil, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	gold := s.Filtered("", "Gold")
	require.Len(t, gold, 1)
	assert.Equal(t, "1", gold[0].ID)

	assert.Len(t, s.Filtered("", entity.StandardAll), 3)
	assert.Len(t, s.Filtered("", ""), 3)
	assert.Empty(t, s.Filtered("", "Platinum"))
}

func TestFilteredByQuery(t *testing.T) {
	s := NewListingStore(&stubRepo{listings: sampleListings()}, nil, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	tests := []struct {
		name  string
		query string
		ids   []string
	}{
		{"title substring", "unicorn", []string{"2"}},
		{"location", "leeds", []string{"1", "3"}},
		{"contact name", "sam pr", []string{"1"}},
		{"contact email domain", "caravans.co.uk", []string{"3"}},
		{"case insensitive", "SWIFT", []string{"1"}},
		{"whitespace trimmed", "  york  ", []string{"2"}},
		{"no match", "narrowboat", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Filtered(tt.query, "")
			ids := make([]string, 0, len(got))
			for _, l := range got {
				ids = append(ids, l.ID)
			}
			if tt.ids == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestFilteredCombinesQueryAndStandard(t *testing.T) {
	s := NewListingStore(&stubRepo{listings: sampleListings()}, nil, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	got := s.Filtered("leeds", "Bronze")
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
}

func TestLoadFeaturedEmptyIsNotAnError(t *testing.T) {
	s := NewListingStore(&stubRepo{}, nil, zap.NewNop())
	require.NoError(t, s.LoadFeatured(context.Background()))
	assert.Empty(t, s.FeaturedID())
	assert.Nil(t, s.Featured())
}

func TestLoadFeaturedFromRepositoryAndCache(t *testing.T) {
	repo := &stubRepo{listings: sampleListings(), featuredID: "2"}
	c := newMemCache()
	s := NewListingStore(repo, c, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.LoadFeatured(context.Background()))
	assert.Equal(t, "2", s.FeaturedID())
	require.NotNil(t, s.Featured())
	assert.Equal(t, "Bailey Unicorn", s.Featured().Title)

	// The pointer is now cached; a repository outage does not matter.
	repo.failFeat = errors.New("down")
	s2 := NewListingStore(repo, c, zap.NewNop())
	require.NoError(t, s2.LoadFeatured(context.Background()))
	assert.Equal(t, "2", s2.FeaturedID())
}

func TestSetAndClearFeatured(t *testing.T) {
	c := newMemCache()
	s := NewListingStore(&stubRepo{listings: sampleListings()}, c, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	s.SetFeaturedID(context.Background(), "1")
	assert.Equal(t, "1", s.FeaturedID())
	cached, err := c.Get(context.Background(), featuredCacheKey)
	require.NoError(t, err)
	assert.Equal(t, "1", string(cached))

	s.ClearFeatured(context.Background())
	assert.Empty(t, s.FeaturedID())
	_, err = c.Get(context.Background(), featuredCacheKey)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestFeaturedDanglingPointer(t *testing.T) {
	s := NewListingStore(&stubRepo{listings: sampleListings()}, nil, zap.NewNop())
	require.NoError(t, s.Refresh(context.Background()))

	s.SetFeaturedID(context.Background(), "gone")
	assert.Nil(t, s.Featured(), "a pointer to a deleted listing yields no featured listing")
}
