package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
	"github.com/campusearn/backend/internal/services"
	"github.com/campusearn/backend/internal/validation"
)

// UserOps is the user service surface the handlers call.
type UserOps interface {
	Profile(ctx context.Context, c models.Caller) (*models.User, error)
	Get(ctx context.Context, c models.Caller, id uuid.UUID) (*models.User, error)
	Role(ctx context.Context, c models.Caller) services.RoleInfo
	SaveProfile(ctx context.Context, c models.Caller, in services.ProfileUpdate) (*models.User, error)
	UpdateCollege(ctx context.Context, c models.Caller, college string, year int) (*models.User, error)
	UploadPicture(ctx context.Context, c models.Caller, ref string) (*models.User, error)
	SubmitVerification(ctx context.Context, c models.Caller, college string, year int, document string) (*models.User, error)
	PendingVerifications(ctx context.Context, c models.Caller) ([]*models.VerificationRequest, error)
	VerifyUser(ctx context.Context, c models.Caller, id uuid.UUID, approve bool) (*models.User, error)
	AssignRole(ctx context.Context, c models.Caller, id uuid.UUID, role models.UserRole) error
}

// UserHandler serves /api/v1/users endpoints.
type UserHandler struct {
	Users     UserOps
	Validator *validation.Validator
	Logger    *slog.Logger
}

// --- GET /api/v1/users/me ---

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.Users.Profile(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// --- PUT /api/v1/users/me ---

type profileRequest struct {
	Name        string         `json:"name"`
	PhoneNumber string         `json:"phone_number"`
	AppRole     models.AppRole `json:"app_role,omitempty"`
}

func (h *UserHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decode(w, r, h.Validator, validation.Profile, &req) {
		return
	}
	u, err := h.Users.SaveProfile(r.Context(), c, services.ProfileUpdate{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		AppRole:     req.AppRole,
	})
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "save profile", err)
		return
	}
	writeMutation(w, lifecycle.OpSaveProfile, http.StatusOK, u)
}

// --- GET /api/v1/users/me/role ---

func (h *UserHandler) Role(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Users.Role(r.Context(), c))
}

// --- GET /api/v1/users/{id} ---

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Users.Get(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// --- PATCH /api/v1/users/me/college ---

type collegeRequest struct {
	College              string `json:"college"`
	Year                 int    `json:"year"`
	VerificationDocument string `json:"verification_document"`
}

func (h *UserHandler) UpdateCollege(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req collegeRequest
	if !decode(w, r, h.Validator, validation.College, &req) {
		return
	}
	u, err := h.Users.UpdateCollege(r.Context(), c, req.College, req.Year)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "update college", err)
		return
	}
	writeMutation(w, lifecycle.OpSaveProfile, http.StatusOK, u)
}

// --- PUT /api/v1/users/me/picture ---

type pictureRequest struct {
	ProfilePicture string `json:"profile_picture"`
}

func (h *UserHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req pictureRequest
	if !decode(w, r, h.Validator, validation.Picture, &req) {
		return
	}
	u, err := h.Users.UploadPicture(r.Context(), c, req.ProfilePicture)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "upload picture", err)
		return
	}
	writeMutation(w, lifecycle.OpSaveProfile, http.StatusOK, u)
}

// --- POST /api/v1/users/me/verification ---

func (h *UserHandler) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req collegeRequest
	if !decode(w, r, h.Validator, validation.College, &req) {
		return
	}
	u, err := h.Users.SubmitVerification(r.Context(), c, req.College, req.Year, req.VerificationDocument)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "submit verification", err)
		return
	}
	writeMutation(w, lifecycle.OpSubmitVerification, http.StatusAccepted, u)
}
