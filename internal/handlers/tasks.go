package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
	"github.com/campusearn/backend/internal/validation"
)

// TaskOps is the task service surface the handler calls.
type TaskOps interface {
	Create(ctx context.Context, c models.Caller, in lifecycle.CreateInput) (*models.Task, error)
	Accept(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error)
	SubmitProof(ctx context.Context, c models.Caller, taskID uuid.UUID, files []string) (*models.Task, error)
	Review(ctx context.Context, c models.Caller, taskID uuid.UUID, approve bool) (*models.Task, error)
	RequestRevision(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error)
	Approve(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error)
	Decline(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error)
	Get(ctx context.Context, c models.Caller, id uuid.UUID) (*models.Task, error)
	ListAll(ctx context.Context, c models.Caller) ([]*models.Task, error)
	ListOpen(ctx context.Context, c models.Caller) ([]*models.Task, error)
	ListByUser(ctx context.Context, c models.Caller, userID uuid.UUID) ([]*models.Task, error)
	ProofFiles(ctx context.Context, c models.Caller, taskID uuid.UUID) ([]string, error)
}

// TaskHandler serves /api/v1/tasks endpoints.
type TaskHandler struct {
	Tasks     TaskOps
	Validator *validation.Validator
	Logger    *slog.Logger
}

// --- POST /api/v1/tasks ---

type createTaskRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	Category           string `json:"category"`
	Location           string `json:"location"`
	TimeRequired       string `json:"time_required"`
	PaymentAmount      int64  `json:"payment_amount"`
	AcceptanceDeadline *int64 `json:"acceptance_deadline,omitempty"`
}

// CreateTask handles POST /api/v1/tasks.
// Auth -> payment limits (via middleware) -> schema -> escrow + insert -> 201.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if !decode(w, r, h.Validator, validation.CreateTask, &req) {
		return
	}
	task, err := h.Tasks.Create(r.Context(), c, lifecycle.CreateInput{
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Location:           req.Location,
		TimeRequired:       req.TimeRequired,
		PaymentAmount:      req.PaymentAmount,
		AcceptanceDeadline: req.AcceptanceDeadline,
	})
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "create task", err)
		return
	}
	writeMutation(w, lifecycle.OpCreateTask, http.StatusCreated, task)
}

// --- GET /api/v1/tasks (admin) ---

func (h *TaskHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	tasks, err := h.Tasks.ListAll(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /api/v1/tasks/open ---

func (h *TaskHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	tasks, err := h.Tasks.ListOpen(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "list open tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /api/v1/tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.Tasks.Get(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- GET /api/v1/users/{id}/tasks ---

func (h *TaskHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tasks, err := h.Tasks.ListByUser(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "list user tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- POST /api/v1/tasks/{id}/accept ---

func (h *TaskHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.OpAcceptTask, "accept task", h.Tasks.Accept)
}

// --- POST /api/v1/tasks/{id}/proof ---

type submitProofRequest struct {
	ProofFiles []string `json:"proof_files"`
}

func (h *TaskHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req submitProofRequest
	if !decode(w, r, h.Validator, validation.SubmitProof, &req) {
		return
	}
	task, err := h.Tasks.SubmitProof(r.Context(), c, id, req.ProofFiles)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "submit proof", err)
		return
	}
	writeMutation(w, lifecycle.OpSubmitProof, http.StatusOK, task)
}

// --- GET /api/v1/tasks/{id}/proof ---

func (h *TaskHandler) ProofFiles(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	files, err := h.Tasks.ProofFiles(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "get proof", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"proof_files": files})
}

// --- POST /api/v1/tasks/{id}/review ---

type decisionRequest struct {
	Approve bool `json:"approve"`
}

func (h *TaskHandler) Review(w http.ResponseWriter, r *http.Request) {
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
	task, err := h.Tasks.Review(r.Context(), c, id, req.Approve)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "review task", err)
		return
	}
	op := lifecycle.OpApproveReview
	if !req.Approve {
		op = lifecycle.OpRejectReview
	}
	writeMutation(w, op, http.StatusOK, task)
}

// --- POST /api/v1/tasks/{id}/revision ---

func (h *TaskHandler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.OpRequestRevision, "request revision", h.Tasks.RequestRevision)
}

// --- POST /api/v1/tasks/{id}/approve, /decline ---

func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.OpModerateTask, "approve task", h.Tasks.Approve)
}

func (h *TaskHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.OpDeclineTask, "decline task", h.Tasks.Decline)
}

// transition serves the body-less task actions.
func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, op lifecycle.Op, name string,
	fn func(context.Context, models.Caller, uuid.UUID) (*models.Task, error)) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := fn(r.Context(), c, id)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), name, err)
		return
	}
	writeMutation(w, op, http.StatusOK, task)
}
