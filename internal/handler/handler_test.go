package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/middleware"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"github.com/Corey-Yule/caravan-site/internal/store"
	"github.com/Corey-Yule/caravan-site/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
	nextID   int
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{listings: make(map[string]*entity.Listing)}
}

func (r *memListingRepo) Create(_ context.Context, l *entity.Listing) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("l%d", r.nextID)
	cp := *l
	cp.ID = id
	r.listings[id] = &cp
	return id, nil
}

func (r *memListingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.listings, id)
	return nil
}

func (r *memListingRepo) FindByID(_ context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *memListingRepo) FindAll(_ context.Context) ([]*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memListingRepo) FindFeaturedID(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.listings {
		if l.IsFeatured {
			return id, nil
		}
	}
	return "", repository.ErrNotFound
}

func (r *memListingRepo) SetFeatured(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[id]; !ok {
		return repository.ErrNotFound
	}
	for lid, l := range r.listings {
		l.IsFeatured = lid == id
	}
	return nil
}

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[string]*entity.Profile)}
}

func (r *memProfileRepo) Create(_ context.Context, p *entity.Profile) error {
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

func (r *memProfileRepo) GetByID(_ context.Context, id string) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProfileRepo) GetByEmail(_ context.Context, email string) (*entity.Profile, error) {
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

func (r *memProfileRepo) Upsert(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; ok {
		return nil
	}
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *memProfileRepo) promoteToAdmin(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			p.Role = entity.RoleAdmin
		}
	}
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://storage.test/listing-images/" + key, nil
}

func (s *memStorage) Remove(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *memStorage) ObjectKeyFromURL(url string) (string, bool) {
	const segment = "/listing-images/"
	idx := strings.Index(url, segment)
	if idx == -1 {
		return "", false
	}
	return url[idx+len(segment):], true
}

type testEnv struct {
	server      *httptest.Server
	profileRepo *memProfileRepo
	listingRepo *memListingRepo
	view        *store.ListingStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	listingRepo := newMemListingRepo()
	profileRepo := newMemProfileRepo()
	view := store.NewListingStore(listingRepo, nil, logger)

	authUC := usecase.NewAuthUsecase(profileRepo, nil, "handler-test-secret", time.Hour, logger)
	profileUC := usecase.NewProfileUsecase(profileRepo, logger)
	listingUC := usecase.NewListingUsecase(listingRepo, newMemStorage(), nil, view, nil, logger)
	jwtAuth := middleware.NewJWTAuth("handler-test-secret", authUC, logger)

	h := NewHandlers(authUC, profileUC, listingUC, view, jwtAuth, nil, 8<<20, logger)
	srv := httptest.NewServer(h.Router(logger))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, profileRepo: profileRepo, listingRepo: listingRepo, view: view}
}

func (e *testEnv) register(t *testing.T, name, email string) (userID, token string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"name":     name,
		"email":    email,
		"password": "hunter2hunter2",
	})
	resp, err := http.Post(e.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		User  entity.AppUser `json:"user"`
		Token string         `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.User.ID, out.Token
}

func (e *testEnv) createListing(t *testing.T, token, title string) listingResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", title))
	require.NoError(t, mw.WriteField("standard", "Gold"))
	require.NoError(t, mw.WriteField("location", "Leeds"))
	require.NoError(t, mw.WriteField("contactName", "Sam Price"))
	require.NoError(t, mw.WriteField("contactEmail", "sam@example.com"))
	fw, err := mw.CreateFormFile("images", "front.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, e.server.URL+"/api/v1/listings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out listingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, e.server.URL+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestCreateAndListListings(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "Sam", "sam@example.com")

	created := env.createListing(t, token, "2019 Swift Challenger")
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Images, 1)

	resp := env.do(t, http.MethodGet, "/api/v1/listings?q=swift&standard=Gold", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listings []listingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listings))
	require.Len(t, listings, 1)
	assert.Equal(t, created.ID, listings[0].ID)

	resp = env.do(t, http.MethodGet, "/api/v1/listings?q=narrowboat", "")
	defer resp.Body.Close()
	var none []listingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&none))
	assert.Empty(t, none)
}

func TestListingWithoutImagesGetsPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.listingRepo.Create(context.Background(), &entity.Listing{
		Title: "No photos yet", Standard: entity.StandardBronze, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, env.view.Refresh(context.Background()))

	resp := env.do(t, http.MethodGet, "/api/v1/listings", "")
	defer resp.Body.Close()
	var listings []listingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listings))
	require.Len(t, listings, 1)
	assert.Equal(t, []string{entity.PlaceholderImageURL}, listings[0].Images)
}

func TestCreateListingRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/listings", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/listings", "not-a-jwt")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFeaturedEndpointAndAdminGate(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "Sam", "sam@example.com")
	created := env.createListing(t, token, "2019 Swift Challenger")

	// Empty featured state serves null, not an error.
	resp := env.do(t, http.MethodGet, "/api/v1/listings/featured", "")
	body := readAll(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", strings.TrimSpace(body))

	// A regular user cannot feature a listing.
	resp = env.do(t, http.MethodPut, "/api/v1/listings/"+created.ID+"/featured", token)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Promote and log in again so the token carries the admin role.
	env.profileRepo.promoteToAdmin("sam@example.com")
	loginBody, _ := json.Marshal(map[string]string{"email": "sam@example.com", "password": "hunter2hunter2"})
	loginResp, err := http.Post(env.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(loginResp.Body).Decode(&login))
	loginResp.Body.Close()

	resp = env.do(t, http.MethodPut, "/api/v1/listings/"+created.ID+"/featured", login.Token)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/listings/featured", "")
	defer resp.Body.Close()
	var featured listingResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&featured))
	assert.Equal(t, created.ID, featured.ID)
	assert.True(t, featured.IsFeatured)
}

func TestDeleteListingOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.register(t, "Sam", "sam@example.com")
	_, strangerToken := env.register(t, "Alex", "alex@example.com")
	created := env.createListing(t, ownerToken, "2019 Swift Challenger")

	resp := env.do(t, http.MethodDelete, "/api/v1/listings/"+created.ID, strangerToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/listings/"+created.ID, ownerToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/listings/"+created.ID, ownerToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Sam", "sam@example.com")

	body, _ := json.Marshal(map[string]string{
		"name":     "Sam Again",
		"email":    "sam@example.com",
		"password": "hunter2hunter2",
	})
	resp, err := http.Post(env.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMeResolvesProfile(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.register(t, "Sam", "sam@example.com")

	resp := env.do(t, http.MethodGet, "/api/v1/me", token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me entity.AppUser
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, "Sam", me.Name)
	assert.Equal(t, entity.RoleUser, me.Role)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
