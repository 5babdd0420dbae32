package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Corey-Yule/caravan-site/internal/entity"
	"github.com/Corey-Yule/caravan-site/internal/middleware"
	"github.com/Corey-Yule/caravan-site/internal/port/repository"
	"github.com/Corey-Yule/caravan-site/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type listingResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Standard     string    `json:"standard"`
	Location     string    `json:"location"`
	ContactName  string    `json:"contactName"`
	ContactEmail string    `json:"contactEmail"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"createdAt"`
	OwnerID      string    `json:"ownerId"`
	OwnerEmail   string    `json:"ownerEmail"`
	IsFeatured   bool      `json:"isFeatured"`
	DaysListed   int       `json:"daysListed"`
}

func toListingResponse(l *entity.Listing) listingResponse {
	return listingResponse{
		ID:           l.ID,
		Title:        l.Title,
		Standard:     string(l.Standard),
		Location:     l.Location,
		ContactName:  l.ContactName,
		ContactEmail: l.ContactEmail,
		ContactPhone: l.ContactPhone,
		Images:       l.ImagesOrPlaceholder(),
		CreatedAt:    l.CreatedAt,
		OwnerID:      l.OwnerID,
		OwnerEmail:   l.OwnerEmail,
		IsFeatured:   l.IsFeatured,
		DaysListed:   l.DaysListed(time.Now().UTC()),
	}
}

// ListListings serves the current snapshot, optionally narrowed by the q and
// standard query parameters.
func (h *Handlers) ListListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	standard := r.URL.Query().Get("standard")

	listings := h.view.Filtered(query, standard)
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handlers) FeaturedListing(w http.ResponseWriter, r *http.Request) {
	featured := h.view.Featured()
	if featured == nil {
		// No featured listing is a valid state, served as an explicit null.
		h.respondJSON(w, http.StatusOK, (*listingResponse)(nil))
		return
	}
	h.respondJSON(w, http.StatusOK, toListingResponse(featured))
}

func (h *Handlers) GetListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, l := range h.view.All() {
		if l.ID == id {
			h.respondJSON(w, http.StatusOK, toListingResponse(l))
			return
		}
	}
	h.respondError(w, repository.ErrNotFound)
}

// CreateListing accepts a multipart form: text fields plus up to ten files
// under the images field.
func (h *Handlers) CreateListing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.respondError(w, fmt.Errorf("%w: invalid multipart form", usecase.ErrValidation))
		return
	}

	input := usecase.CreateListingInput{
		Title:        r.FormValue("title"),
		Standard:     r.FormValue("standard"),
		Location:     r.FormValue("location"),
		ContactName:  r.FormValue("contactName"),
		ContactEmail: r.FormValue("contactEmail"),
		ContactPhone: r.FormValue("contactPhone"),
	}

	var images []usecase.ImageUpload
	if r.MultipartForm != nil {
		files := r.MultipartForm.File["images"]
		if len(files) > usecase.MaxListingImages {
			h.respondError(w, fmt.Errorf("%w: at most %d images per listing", usecase.ErrValidation, usecase.MaxListingImages))
			return
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				h.respondError(w, fmt.Errorf("%w: unreadable image %q", usecase.ErrValidation, fh.Filename))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				h.respondError(w, fmt.Errorf("%w: unreadable image %q", usecase.ErrValidation, fh.Filename))
				return
			}
			images = append(images, usecase.ImageUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	user := h.resolveUser(r)
	listing, err := h.listings.Create(r.Context(), user, input, images)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ListingsCreatedTotal.Inc()
	}
	h.respondJSON(w, http.StatusCreated, toListingResponse(listing))
}

func (h *Handlers) DeleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := h.resolveUser(r)

	if err := h.listings.Delete(r.Context(), user, id); err != nil {
		h.respondError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ListingsDeletedTotal.Inc()
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handlers) FeatureListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := h.resolveUser(r)

	if err := h.listings.SetFeatured(r.Context(), user, id); err != nil {
		h.respondError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.FeaturedChangesTotal.Inc()
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "featured", "id": id})
}

// resolveUser turns the token identity on the context into an application
// profile. The role on the profile row, not the token, decides admin access
// in the usecases.
func (h *Handlers) resolveUser(r *http.Request) *entity.AppUser {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	email, _ := middleware.UserEmailFromContext(r.Context())
	return h.profiles.Resolve(r.Context(), userID, email)
}
