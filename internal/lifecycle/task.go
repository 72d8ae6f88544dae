// Package lifecycle holds the task and withdrawal state machines and the
// settlement split. Functions here do no I/O: they check every guard against
// an in-memory copy of a row and only mutate it once all guards pass, so a
// caller that gets an error has nothing to roll back.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/models"
)

// ReviewOutcome is what a review or revision request resolved to.
type ReviewOutcome int

const (
	// OutcomeCompleted means the task was approved and must be settled.
	OutcomeCompleted ReviewOutcome = iota
	// OutcomeRevision means the task went back to inProgress for resubmission.
	OutcomeRevision
	// OutcomeRejected means the revision limit was exceeded; the escrow must be refunded.
	OutcomeRejected
)

// ErrDeadlineNotReached is returned by Expire before the acceptance deadline.
// Unlike other conflicts it is temporary: the same call succeeds later.
var ErrDeadlineNotReached = fmt.Errorf("%w: acceptance deadline not reached", models.ErrConflict)

// CreateInput is the provider-supplied part of a new task.
type CreateInput struct {
	Title              string
	Description        string
	Category           string
	Location           string
	TimeRequired       string
	PaymentAmount      int64
	AcceptanceDeadline *int64
}

// CheckCreate validates a create request against the caller and the
// provider's deposit balance at the time of the check.
func CheckCreate(c models.Caller, in CreateInput, depositBalance, now int64) error {
	if !c.AppRole.IsProvider() {
		return fmt.Errorf("%w: only task posters and businesses can create tasks", models.ErrForbidden)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", models.ErrInvalid)
	}
	if in.PaymentAmount <= 0 {
		return fmt.Errorf("%w: payment_amount must be > 0", models.ErrInvalid)
	}
	if in.AcceptanceDeadline != nil && *in.AcceptanceDeadline <= now {
		return fmt.Errorf("%w: acceptance_deadline must be in the future", models.ErrInvalid)
	}
	if depositBalance < in.PaymentAmount {
		return fmt.Errorf("%w: deposit balance %d < payment amount %d", models.ErrInsufficientFunds, depositBalance, in.PaymentAmount)
	}
	return nil
}

// NewTask builds the task row for a validated create request.
func NewTask(id uuid.UUID, c models.Caller, in CreateInput, requireModeration bool, now int64) *models.Task {
	status := models.TaskStatusOpen
	if requireModeration {
		status = models.TaskStatusPendingApproval
	}
	return &models.Task{
		ID:                 id,
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Category:           in.Category,
		Location:           in.Location,
		TimeRequired:       in.TimeRequired,
		PaymentAmount:      in.PaymentAmount,
		Status:             status,
		Provider:           c.UserID,
		Proof:              models.TaskProof{ProofFiles: []string{}},
		AcceptanceDeadline: in.AcceptanceDeadline,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Accept claims an open task for a student.
func Accept(t *models.Task, c models.Caller, now int64) error {
	if c.AppRole != models.AppRoleStudent {
		return fmt.Errorf("%w: only students can accept tasks", models.ErrForbidden)
	}
	if c.UserID == t.Provider {
		return fmt.Errorf("%w: provider cannot accept own task", models.ErrForbidden)
	}
	if t.AcceptedBy != nil {
		return fmt.Errorf("%w: task already accepted", models.ErrConflict)
	}
	if t.Status != models.TaskStatusOpen {
		return statusConflict(t, models.TaskStatusOpen)
	}
	if t.AcceptanceDeadline != nil && *t.AcceptanceDeadline <= now {
		return fmt.Errorf("%w: acceptance deadline has passed", models.ErrConflict)
	}
	id := c.UserID
	t.AcceptedBy = &id
	t.Status = models.TaskStatusInProgress
	t.UpdatedAt = now
	return nil
}

// SubmitProof attaches proof files and moves the task to review.
func SubmitProof(t *models.Task, c models.Caller, files []string, now int64) error {
	if t.AcceptedBy == nil || *t.AcceptedBy != c.UserID {
		return fmt.Errorf("%w: caller is not the assigned student", models.ErrForbidden)
	}
	if t.Status != models.TaskStatusInProgress {
		return statusConflict(t, models.TaskStatusInProgress)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one proof file is required", models.ErrInvalid)
	}
	cleaned := make([]string, 0, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			return fmt.Errorf("%w: proof file reference is empty", models.ErrInvalid)
		}
		cleaned = append(cleaned, f)
	}
	t.Proof = models.TaskProof{ProofFiles: cleaned, SubmittedAt: now}
	t.Status = models.TaskStatusProofSubmitted
	t.UpdatedAt = now
	return nil
}

// Review applies an admin decision to a submitted task. maxRevisions <= 0
// means revisions are unlimited.
func Review(t *models.Task, c models.Caller, approve bool, maxRevisions int, now int64) (ReviewOutcome, error) {
	if !c.IsAdmin() {
		return 0, fmt.Errorf("%w: only admins can review tasks", models.ErrForbidden)
	}
	if !awaitingReview(t.Status) {
		return 0, statusConflict(t, models.TaskStatusProofSubmitted)
	}
	if approve {
		t.Status = models.TaskStatusCompleted
		t.UpdatedAt = now
		return OutcomeCompleted, nil
	}
	return sendBack(t, maxRevisions, now), nil
}

// RequestRevision sends a submitted task back to the student. Admins and the
// task's provider may ask for a revision.
func RequestRevision(t *models.Task, c models.Caller, maxRevisions int, now int64) (ReviewOutcome, error) {
	if !c.IsAdmin() && c.UserID != t.Provider {
		return 0, fmt.Errorf("%w: only admins or the provider can request a revision", models.ErrForbidden)
	}
	if !awaitingReview(t.Status) {
		return 0, statusConflict(t, models.TaskStatusProofSubmitted)
	}
	return sendBack(t, maxRevisions, now), nil
}

func sendBack(t *models.Task, maxRevisions int, now int64) ReviewOutcome {
	t.RevisionCount++
	t.UpdatedAt = now
	if maxRevisions > 0 && t.RevisionCount > maxRevisions {
		t.Status = models.TaskStatusRejected
		return OutcomeRejected
	}
	t.Status = models.TaskStatusInProgress
	return OutcomeRevision
}

// Moderate approves a listing so it becomes visible as open.
func Moderate(t *models.Task, c models.Caller, now int64) error {
	if !c.IsAdmin() {
		return fmt.Errorf("%w: only admins can moderate tasks", models.ErrForbidden)
	}
	if t.Status != models.TaskStatusOpen && t.Status != models.TaskStatusPendingApproval {
		return statusConflict(t, models.TaskStatusPendingApproval)
	}
	t.Status = models.TaskStatusOpen
	t.UpdatedAt = now
	return nil
}

// Decline takes an unassigned listing down. The caller must refund the escrow.
func Decline(t *models.Task, c models.Caller, now int64) error {
	if !c.IsAdmin() {
		return fmt.Errorf("%w: only admins can decline tasks", models.ErrForbidden)
	}
	return decline(t, now)
}

// Expire declines an open task whose acceptance deadline has passed.
func Expire(t *models.Task, now int64) error {
	if t.AcceptanceDeadline == nil {
		return fmt.Errorf("%w: task has no acceptance deadline", models.ErrConflict)
	}
	if *t.AcceptanceDeadline > now {
		return ErrDeadlineNotReached
	}
	return decline(t, now)
}

func decline(t *models.Task, now int64) error {
	if t.AcceptedBy != nil {
		return fmt.Errorf("%w: task already accepted", models.ErrConflict)
	}
	if t.Status != models.TaskStatusOpen && t.Status != models.TaskStatusPendingApproval {
		return statusConflict(t, models.TaskStatusOpen)
	}
	t.Status = models.TaskStatusDeclined
	t.UpdatedAt = now
	return nil
}

// CheckInvariants verifies the row-level invariants before a write.
func CheckInvariants(t *models.Task) error {
	if t.Status.HasAssignee() != (t.AcceptedBy != nil) {
		return fmt.Errorf("task %s: status %s with accepted_by set=%t", t.ID, t.Status, t.AcceptedBy != nil)
	}
	if t.PaymentAmount <= 0 {
		return fmt.Errorf("task %s: payment amount %d", t.ID, t.PaymentAmount)
	}
	return nil
}

// CanViewProof reports whether the caller may read a task's proof files.
func CanViewProof(t *models.Task, c models.Caller) bool {
	if c.IsAdmin() || c.UserID == t.Provider {
		return true
	}
	return t.AcceptedBy != nil && *t.AcceptedBy == c.UserID
}

// RedactProof clears the proof file references unless the caller may view
// them. The submission time stays visible.
func RedactProof(t *models.Task, c models.Caller) *models.Task {
	if t != nil && !CanViewProof(t, c) {
		t.Proof.ProofFiles = nil
	}
	return t
}

func awaitingReview(s models.TaskStatus) bool {
	return s == models.TaskStatusProofSubmitted || s == models.TaskStatusUnderReview
}

func statusConflict(t *models.Task, want models.TaskStatus) error {
	return fmt.Errorf("%w: task is %s, want %s", models.ErrConflict, t.Status, want)
}
