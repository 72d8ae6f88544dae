package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// InsertTxFunc inserts a job inside the caller's transaction. In production
// it wraps (*river.Client).InsertTx.
type InsertTxFunc func(ctx context.Context, tx pgx.Tx, args river.JobArgs, opts *river.InsertOpts) error

// ErrNotWired is returned when a job is scheduled before Bind.
var ErrNotWired = errors.New("river insert not wired")

// Scheduler enqueues expiry jobs. The insert func is bound after the river
// client exists, which itself needs the workers that depend on the services.
type Scheduler struct {
	mu     sync.Mutex
	insert InsertTxFunc
}

func (s *Scheduler) Bind(fn InsertTxFunc) {
	s.mu.Lock()
	s.insert = fn
	s.mu.Unlock()
}

// ScheduleExpiryTx enqueues one expiry job for taskID, runnable at the
// deadline, in the transaction that creates the task.
func (s *Scheduler) ScheduleExpiryTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	fn := s.insert
	s.mu.Unlock()
	if fn == nil {
		return ErrNotWired
	}
	return fn(ctx, tx, ExpireTaskArgs{TaskID: taskID, Deadline: at.UnixNano()}, &river.InsertOpts{
		ScheduledAt: at,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
}

// RiverInsert adapts a river client to InsertTxFunc.
func RiverInsert(client *river.Client[pgx.Tx]) InsertTxFunc {
	return func(ctx context.Context, tx pgx.Tx, args river.JobArgs, opts *river.InsertOpts) error {
		_, err := client.InsertTx(ctx, tx, args, opts)
		return err
	}
}
