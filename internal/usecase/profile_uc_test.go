package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
	failGet  error
	failUp   error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*entity.Profile)}
}

func (r *fakeProfileRepo) Create(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.Email == p.Email {
			return repository.ErrDuplicateEmail
		}
	}
	cp := *p
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	cp.Password = string(hash)
	r.profiles[p.ID] = &cp
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeProfileRepo) Upsert(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUp != nil {
		return r.failUp
	}
	if _, ok := r.profiles[p.ID]; ok {
		return nil
	}
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func TestResolveCreatesMissingProfile(t *testing.T) {
	repo := newFakeProfileRepo()
	uc := NewProfileUsecase(repo, zap.NewNop())

	user := uc.Resolve(context.Background(), "u1", "jo.bloggs@example.com")
	require.NotNil(t, user)

	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "jo.bloggs", user.Name, "name falls back to the email local-part")
	assert.Equal(t, entity.RoleUser, user.Role)

	stored, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "jo.bloggs", stored.Name)
}

func TestResolveKeepsExistingProfile(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["u1"] = &entity.Profile{
		ID:    "u1",
		Name:  "Jo Bloggs",
		Email: "jo@example.com",
		Role:  " ADMIN ",
	}
	uc := NewProfileUsecase(repo, zap.NewNop())

	user := uc.Resolve(context.Background(), "u1", "jo@example.com")
	assert.Equal(t, "Jo Bloggs", user.Name)
	assert.Equal(t, entity.RoleAdmin, user.Role, "role values are trimmed and lowercased")
}

func TestResolveUnknownRoleCollapsesToUser(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["u1"] = &entity.Profile{ID: "u1", Name: "X", Role: "superuser"}
	uc := NewProfileUsecase(repo, zap.NewNop())

	user := uc.Resolve(context.Background(), "u1", "x@example.com")
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.False(t, user.IsAdmin())
}

func TestResolveNeverFailsOpenToAdmin(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.failGet = errors.New("database down")
	uc := NewProfileUsecase(repo, zap.NewNop())

	user := uc.Resolve(context.Background(), "u1", "jo@example.com")
	require.NotNil(t, user, "resolution errors must not fail the request")
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.Equal(t, "jo", user.Name)
}

func TestResolveUpsertFailureFallsBack(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.failUp = errors.New("write refused")
	uc := NewProfileUsecase(repo, zap.NewNop())

	user := uc.Resolve(context.Background(), "u1", "jo@example.com")
	require.NotNil(t, user)
	assert.Equal(t, entity.RoleUser, user.Role)
}

func TestResolveConcurrentInsertWins(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.profiles["u1"] = &entity.Profile{ID: "u1", Name: "Existing", Role: entity.RoleAdmin}
	uc := NewProfileUsecase(repo, zap.NewNop())

	// The upsert is insert-if-missing, so the pre-existing row survives and
	// its role is honoured.
	user := uc.Resolve(context.Background(), "u1", "jo@example.com")
	assert.Equal(t, "Existing", user.Name)
	assert.True(t, user.IsAdmin())
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "jo", entity.FallbackName("jo@example.com"))
	assert.Equal(t, "weird", entity.FallbackName("weird"))
	assert.Equal(t, "User", entity.FallbackName(""))
	assert.Equal(t, "@example.com", entity.FallbackName("@example.com"))
}
