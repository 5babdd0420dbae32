package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Corey-Yule/caravan-site/internal/middleware"
	"github.com/Corey-Yule/caravan-site/internal/platform/metrics"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"github.com/Corey-Yule/caravan-site/internal/store"
	"github.com/Corey-Yule/caravan-site/internal/usecase"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handlers holds the HTTP surface and its collaborators.
type Handlers struct {
	auth      *usecase.AuthUsecase
	profiles  *usecase.ProfileUsecase
	listings  *usecase.ListingUsecase
	view      *store.ListingStore
	jwtAuth   *middleware.JWTAuth
	metrics   *metrics.MetricsManager
	maxUpload int64
	logger    *zap.Logger
}

func NewHandlers(
	auth *usecase.AuthUsecase,
	profiles *usecase.ProfileUsecase,
	listings *usecase.ListingUsecase,
	view *store.ListingStore,
	jwtAuth *middleware.JWTAuth,
	mm *metrics.MetricsManager,
	maxUpload int64,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		auth:      auth,
		profiles:  profiles,
		listings:  listings,
		view:      view,
		jwtAuth:   jwtAuth,
		metrics:   mm,
		maxUpload: maxUpload,
		logger:    logger.Named("Handlers"),
	}
}

func (h *Handlers) Router(logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if h.metrics != nil {
		r.Use(h.metrics.Instrument)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Get("/listings", h.ListListings)
		r.Get("/listings/featured", h.FeaturedListing)
		r.Get("/listings/{id}", h.GetListing)

		r.Group(func(r chi.Router) {
			r.Use(h.jwtAuth.Require)
			r.Post("/auth/logout", h.Logout)
			r.Get("/me", h.Me)
			r.Post("/listings", h.CreateListing)
			r.Delete("/listings/{id}", h.DeleteListing)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.jwtAuth.RequireAdmin)
			r.Put("/listings/{id}/featured", h.FeatureListing)
		})
	})

	return r
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, usecase.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, usecase.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}
	h.respondJSON(w, status, map[string]string{"error": msg})
}
