package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/middleware"
	"github.com/Corey-Yule/caravan-site/internal/usecase"
)

type authResponse struct {
	User  *entity.AppUser `json:"user"`
	Token string          `json:"token"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var input usecase.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, fmt.Errorf("%w: invalid request body", usecase.ErrValidation))
		return
	}

	user, token, err := h.auth.Register(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var input usecase.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, fmt.Errorf("%w: invalid request body", usecase.ErrValidation))
		return
	}

	user, token, err := h.auth.Login(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), userID); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me resolves the caller's application profile, creating it on first sight.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	email, _ := middleware.UserEmailFromContext(r.Context())

	user := h.profiles.Resolve(r.Context(), userID, email)
	h.respondJSON(w, http.StatusOK, user)
}
