package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
	"github.com/campusearn/backend/internal/validation"
)

type AdOps interface {
	List(ctx context.Context) ([]*models.AdPlacement, error)
	Get(ctx context.Context, t models.AdType) (*models.AdPlacement, error)
	Update(ctx context.Context, c models.Caller, t models.AdType, in models.AdPlacement) (*models.AdPlacement, error)
	Reset(ctx context.Context, c models.Caller) ([]*models.AdPlacement, error)
}

// AdHandler serves ad placement settings. Placement rendering is a client
// concern.
type AdHandler struct {
	Ads       AdOps
	Validator *validation.Validator
	Logger    *slog.Logger
}

// --- GET /api/v1/ads ---

func (h *AdHandler) List(w http.ResponseWriter, r *http.Request) {
	ads, err := h.Ads.List(r.Context())
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "list ads", err)
		return
	}
	writeJSON(w, http.StatusOK, ads)
}

// --- GET /api/v1/ads/{type} ---

func (h *AdHandler) Get(w http.ResponseWriter, r *http.Request) {
	ad, err := h.Ads.Get(r.Context(), models.AdType(chi.URLParam(r, "type")))
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "get ad", err)
		return
	}
	writeJSON(w, http.StatusOK, ad)
}

// --- PUT /api/v1/admin/ads/{type} ---

func (h *AdHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req models.AdPlacement
	if !decode(w, r, h.Validator, validation.Ad, &req) {
		return
	}
	ad, err := h.Ads.Update(r.Context(), c, models.AdType(chi.URLParam(r, "type")), req)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "update ad", err)
		return
	}
	writeMutation(w, lifecycle.OpUpdateAds, http.StatusOK, ad)
}

// --- POST /api/v1/admin/ads/reset ---

func (h *AdHandler) Reset(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	ads, err := h.Ads.Reset(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "reset ads", err)
		return
	}
	writeMutation(w, lifecycle.OpUpdateAds, http.StatusOK, ads)
}
