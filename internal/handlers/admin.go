package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
	"github.com/campusearn/backend/internal/services"
	"github.com/campusearn/backend/internal/validation"
)

// LedgerReports is the admin read side of the wallet service.
type LedgerReports interface {
	AllHistory(ctx context.Context, c models.Caller) ([]*models.TransactionRecord, error)
	AllHistoryExtended(ctx context.Context, c models.Caller) ([]*models.TransactionRecordExtended, error)
	ActivityLog(ctx context.Context, c models.Caller, limit int) ([]*models.ActivityLogEntry, error)
}

type StatsOps interface {
	Stats(ctx context.Context, c models.Caller) (*services.SystemStats, error)
	Commission(ctx context.Context, c models.Caller) (*services.Commission, error)
}

// Seeder loads the demo fixture.
type Seeder interface {
	IsSeeded(ctx context.Context) (bool, error)
	EnsureSeeded(ctx context.Context) (bool, error)
}

// AdminHandler serves /api/v1/admin endpoints. Every service call checks the
// admin role itself; the seeding endpoints check it here.
type AdminHandler struct {
	Reports     LedgerReports
	Stats       StatsOps
	Withdrawals WithdrawalOps
	Users       UserOps
	Seeder      Seeder
	Validator   *validation.Validator
	Logger      *slog.Logger
}

const defaultActivityLimit = 200

// --- GET /api/v1/admin/stats ---

func (h *AdminHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	s, err := h.Stats.Stats(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// --- GET /api/v1/admin/commission ---

func (h *AdminHandler) Commission(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	s, err := h.Stats.Commission(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "commission", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// --- GET /api/v1/admin/transactions[?extended=true] ---

func (h *AdminHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	extended, _ := strconv.ParseBool(r.URL.Query().Get("extended"))
	var (
		out interface{}
		err error
	)
	if extended {
		out, err = h.Reports.AllHistoryExtended(r.Context(), c)
	} else {
		out, err = h.Reports.AllHistory(r.Context(), c)
	}
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "all transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- GET /api/v1/admin/activity[?limit=n] ---

func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	limit := defaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := h.Reports.ActivityLog(r.Context(), c, limit)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "activity log", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- GET /api/v1/admin/withdrawals/pending ---

func (h *AdminHandler) PendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.Withdrawals.ListPending(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "pending withdrawals", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- POST /api/v1/admin/withdrawals/{id}/approve, /reject ---

func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.processWithdrawal(w, r, lifecycle.OpApproveWithdrawal, h.Withdrawals.Approve)
}

func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.processWithdrawal(w, r, lifecycle.OpRejectWithdrawal, h.Withdrawals.Reject)
}

func (h *AdminHandler) processWithdrawal(w http.ResponseWriter, r *http.Request, op lifecycle.Op,
	fn func(context.Context, models.Caller, uuid.UUID) (*models.WithdrawalRequest, error)) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	wr, err := fn(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), string(op), err)
		return
	}
	writeMutation(w, op, http.StatusOK, wr)
}

// --- GET /api/v1/admin/verifications ---

func (h *AdminHandler) PendingVerifications(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.Users.PendingVerifications(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "pending verifications", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- POST /api/v1/admin/verifications/{id} ---

func (h *AdminHandler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !decode(w, r, h.Validator, validation.Decision, &req) {
		return
	}
	u, err := h.Users.VerifyUser(r.Context(), c, id, req.Approve)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "verify user", err)
		return
	}
	writeMutation(w, lifecycle.OpVerifyUser, http.StatusOK, u)
}

// --- POST /api/v1/admin/users/{id}/role ---

type roleRequest struct {
	Role models.UserRole `json:"role"`
}

func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !decode(w, r, h.Validator, validation.Role, &req) {
		return
	}
	if err := h.Users.AssignRole(r.Context(), c, id, req.Role); err != nil {
		writeServiceError(w, loggerOr(h.Logger), "assign role", err)
		return
	}
	writeMutation(w, lifecycle.OpAssignRole, http.StatusOK, map[string]string{"id": id.String(), "role": string(req.Role)})
}

// --- GET /api/v1/admin/seed ---

func (h *AdminHandler) SeedStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if !c.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	seeded, err := h.Seeder.IsSeeded(r.Context())
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "seed status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"seeded": seeded})
}

// --- POST /api/v1/admin/seed ---

func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if !c.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	created, err := h.Seeder.EnsureSeeded(r.Context())
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "seed", err)
		return
	}
	writeMutation(w, lifecycle.OpSeed, http.StatusOK, map[string]bool{"seeded": true, "created": created})
}
