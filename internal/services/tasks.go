package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/metrics"
	"github.com/campusearn/backend/internal/models"
)

// TaskStore is the task repository surface used by TaskService.
type TaskStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	List(ctx context.Context) ([]*models.Task, error)
	ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
}

// ExpiryScheduler enqueues the acceptance-deadline job in the creating transaction.
type ExpiryScheduler interface {
	ScheduleExpiryTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, at time.Time) error
}

// TaskPolicy holds the configurable lifecycle knobs.
type TaskPolicy struct {
	RequireModeration bool
	// MaxRevisions <= 0 means unlimited.
	MaxRevisions int
}

// TaskService owns the task lifecycle. Each method is one transaction: the
// task row is locked, the transition is checked, and every side effect is
// written before commit.
type TaskService struct {
	Pool     TxBeginner
	Tasks    TaskStore
	Users    LedgerUserRepo
	Ledger   *LedgerService
	Activity ActivityAppender
	Expiry   ExpiryScheduler
	Policy   TaskPolicy
	Logger   *slog.Logger
	Now      Clock
}

func (s *TaskService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Create posts a new task and escrows its payment from the provider's deposit.
func (s *TaskService) Create(ctx context.Context, c models.Caller, in lifecycle.CreateInput) (*models.Task, error) {
	var task *models.Task
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		provider, err := s.Users.GetByIDForUpdate(ctx, tx, c.UserID)
		if err != nil {
			return err
		}
		now := s.Now.nanos()
		if err := lifecycle.CheckCreate(c, in, provider.DepositBalance, now); err != nil {
			return err
		}
		task = lifecycle.NewTask(uuid.New(), c, in, s.Policy.RequireModeration, now)
		if err := lifecycle.CheckInvariants(task); err != nil {
			return err
		}
		if err := s.Tasks.CreateTx(ctx, tx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := s.Ledger.Escrow(ctx, tx, task.ID, c.UserID, task.PaymentAmount); err != nil {
			return fmt.Errorf("escrow: %w", err)
		}
		if err := logActivity(ctx, tx, s.Activity, s.Now, models.ActivityTaskCreated, c.UserID, &task.ID); err != nil {
			return err
		}
		if task.AcceptanceDeadline != nil && s.Expiry != nil {
			if err := s.Expiry.ScheduleExpiryTx(ctx, tx, task.ID, time.Unix(0, *task.AcceptanceDeadline)); err != nil {
				return fmt.Errorf("schedule expiry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TasksCreated.Inc()
	s.logger().Info("task created", "task_id", task.ID, "provider", c.UserID, "payment_amount", task.PaymentAmount)
	return task, nil
}

// Accept claims an open task for the calling student. Concurrent accepts
// serialize on the task row lock; exactly one wins.
func (s *TaskService) Accept(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, "accept", taskID, func(tx pgx.Tx, t *models.Task, now int64) error {
		if err := lifecycle.Accept(t, c, now); err != nil {
			return err
		}
		return logActivity(ctx, tx, s.Activity, s.Now, models.ActivityTaskAccepted, c.UserID, &t.ID)
	})
}

// SubmitProof attaches proof files from the assigned student.
func (s *TaskService) SubmitProof(ctx context.Context, c models.Caller, taskID uuid.UUID, files []string) (*models.Task, error) {
	return s.transition(ctx, "submit_proof", taskID, func(tx pgx.Tx, t *models.Task, now int64) error {
		if err := lifecycle.SubmitProof(t, c, files, now); err != nil {
			return err
		}
		return logActivity(ctx, tx, s.Activity, s.Now, models.ActivityProofUploaded, c.UserID, &t.ID)
	})
}

// Review approves or rejects submitted proof. Approval settles the payment.
func (s *TaskService) Review(ctx context.Context, c models.Caller, taskID uuid.UUID, approve bool) (*models.Task, error) {
	return s.transition(ctx, "review", taskID, func(tx pgx.Tx, t *models.Task, now int64) error {
		out, err := lifecycle.Review(t, c, approve, s.Policy.MaxRevisions, now)
		if err != nil {
			return err
		}
		return s.applyOutcome(ctx, tx, t, c, out)
	})
}

// RequestRevision sends submitted proof back to the student.
func (s *TaskService) RequestRevision(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, "request_revision", taskID, func(tx pgx.Tx, t *models.Task, now int64) error {
		out, err := lifecycle.RequestRevision(t, c, s.Policy.MaxRevisions, now)
		if err != nil {
			return err
		}
		return s.applyOutcome(ctx, tx, t, c, out)
	})
}

func (s *TaskService) applyOutcome(ctx context.Context, tx pgx.Tx, t *models.Task, c models.Caller, out lifecycle.ReviewOutcome) error {
	switch out {
	case lifecycle.OutcomeCompleted:
		share, commission, err := s.Ledger.Settle(ctx, tx, t.ID, *t.AcceptedBy, t.PaymentAmount)
		if err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		metrics.CommissionEarned.Add(float64(commission))
		s.logger().Info("task settled", "task_id", t.ID, "student_share", share, "commission", commission)
		return logActivity(ctx, tx, s.Activity, s.Now, models.ActivityTaskApproved, c.UserID, &t.ID)
	case lifecycle.OutcomeRejected:
		if err := s.Ledger.Refund(ctx, tx, t.ID, t.Provider, t.PaymentAmount); err != nil {
			return fmt.Errorf("refund: %w", err)
		}
		return logActivity(ctx, tx, s.Activity, s.Now, models.ActivityTaskRejected, c.UserID, &t.ID)
	default:
		return logActivity(ctx, tx, s.Activity, s.Now, models.ActivityTaskRejected, c.UserID, &t.ID)
	}
}

// Approve publishes a task held for moderation.
func (s *TaskService) Approve(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, "approve", taskID, func(_ pgx.Tx, t *models.Task, now int64) error {
		return lifecycle.Moderate(t, c, now)
	})
}

// Decline takes an unassigned task down and refunds the provider.
func (s *TaskService) Decline(ctx context.Context, c models.Caller, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, "decline", taskID, func(tx pgx.Tx, t *models.Task, now int64) error {
		if err := lifecycle.Decline(t, c, now); err != nil {
			return err
		}
		return s.Ledger.Refund(ctx, tx, t.ID, t.Provider, t.PaymentAmount)
	})
}

// Expire declines a task whose acceptance deadline passed while it was still
// unassigned. Called by the background job.
func (s *TaskService) Expire(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	t, err := s.transition(ctx, "expire", taskID, func(tx pgx.Tx, t *models.Task, now int64) error {
		if err := lifecycle.Expire(t, now); err != nil {
			return err
		}
		return s.Ledger.Refund(ctx, tx, t.ID, t.Provider, t.PaymentAmount)
	})
	if err == nil {
		metrics.TasksExpired.Inc()
	}
	return t, err
}

// transition locks the task, applies fn and writes the result. fn mutates the
// locked copy only after its guards pass; any error discards the transaction.
func (s *TaskService) transition(ctx context.Context, action string, taskID uuid.UUID, fn func(tx pgx.Tx, t *models.Task, now int64) error) (*models.Task, error) {
	var task *models.Task
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		t, err := s.Tasks.GetByIDForUpdate(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := fn(tx, t, s.Now.nanos()); err != nil {
			return err
		}
		if err := lifecycle.CheckInvariants(t); err != nil {
			return err
		}
		if err := s.Tasks.UpdateTx(ctx, tx, t); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		task = t
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			metrics.TaskConflicts.WithLabelValues(action).Inc()
		}
		return nil, err
	}
	metrics.TaskTransitions.WithLabelValues(string(task.Status)).Inc()
	s.logger().Info("task transition", "action", action, "task_id", task.ID, "status", task.Status)
	return task, nil
}

// --- reads ---

// Get returns a task. Proof files are only included for a party to the task.
func (s *TaskService) Get(ctx context.Context, c models.Caller, id uuid.UUID) (*models.Task, error) {
	t, err := s.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return lifecycle.RedactProof(t, c), nil
}

// ListAll returns every task. Admin only.
func (s *TaskService) ListAll(ctx context.Context, c models.Caller) ([]*models.Task, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return redactAll(s.Tasks.List(ctx))(c)
}

// ListOpen returns tasks available for acceptance.
func (s *TaskService) ListOpen(ctx context.Context, c models.Caller) ([]*models.Task, error) {
	return redactAll(s.Tasks.ListByStatus(ctx, models.TaskStatusOpen))(c)
}

// ListByUser returns tasks the user posted or accepted.
func (s *TaskService) ListByUser(ctx context.Context, c models.Caller, userID uuid.UUID) ([]*models.Task, error) {
	return redactAll(s.Tasks.ListByUser(ctx, userID))(c)
}

func redactAll(tasks []*models.Task, err error) func(models.Caller) ([]*models.Task, error) {
	return func(c models.Caller) ([]*models.Task, error) {
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			lifecycle.RedactProof(t, c)
		}
		return tasks, nil
	}
}

// ProofFiles returns a task's proof references to the provider, the assignee
// or an admin.
func (s *TaskService) ProofFiles(ctx context.Context, c models.Caller, taskID uuid.UUID) ([]string, error) {
	t, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanViewProof(t, c) {
		return nil, fmt.Errorf("%w: not a party to this task", models.ErrForbidden)
	}
	return t.Proof.ProofFiles, nil
}
