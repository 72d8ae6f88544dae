// Package jobs holds the river background jobs.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
)

// minSnooze bounds how soon an early expiry job runs again.
const minSnooze = time.Second

// ExpireTaskArgs declines an open task once its acceptance deadline passes.
type ExpireTaskArgs struct {
	TaskID uuid.UUID `json:"task_id"`
	// Deadline is the acceptance deadline in unix nanoseconds.
	Deadline int64 `json:"deadline"`
}

func (ExpireTaskArgs) Kind() string { return "expire_task" }

// TaskExpirer defines the contract the worker needs to decline a task.
type TaskExpirer interface {
	Expire(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
}

type ExpireTaskWorker struct {
	river.WorkerDefaults[ExpireTaskArgs]
	tasks  TaskExpirer
	logger *slog.Logger
	now    func() time.Time
}

func NewExpireTaskWorker(tasks TaskExpirer, logger *slog.Logger) *ExpireTaskWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpireTaskWorker{tasks: tasks, logger: logger, now: time.Now}
}

// Work declines the task. River runs the job on the database clock, so it can
// arrive before the deadline by this process's clock; then it is snoozed
// until the deadline. A task that was accepted, declined or deleted in the
// meantime is left alone and the job completes. Any other error is returned
// so river retries it.
func (w *ExpireTaskWorker) Work(ctx context.Context, job *river.Job[ExpireTaskArgs]) error {
	id := job.Args.TaskID
	t, err := w.tasks.Expire(ctx, id)
	switch {
	case errors.Is(err, lifecycle.ErrDeadlineNotReached):
		wait := snoozeFor(job.Args.Deadline, w.now())
		w.logger.Info("expiry early, snoozing", "task_id", id, "wait", wait)
		return river.JobSnooze(wait)
	case errors.Is(err, models.ErrConflict), errors.Is(err, models.ErrNotFound):
		w.logger.Info("expiry skipped", "task_id", id, "reason", err.Error())
		return nil
	case err != nil:
		return err
	}
	w.logger.Info("task expired", "task_id", t.ID, "provider", t.Provider, "refunded", t.PaymentAmount)
	return nil
}

func snoozeFor(deadline int64, now time.Time) time.Duration {
	wait := time.Duration(deadline - now.UnixNano())
	if wait < minSnooze {
		return minSnooze
	}
	return wait
}
