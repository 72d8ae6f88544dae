package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campusearn/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// withTx runs fn in a transaction and commits only if fn succeeds. Any error
// rolls everything back so callers never observe a partial write.
func withTx(ctx context.Context, pool TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) nanos() int64 {
	if c == nil {
		return models.Nanos(time.Now())
	}
	return models.Nanos(c())
}
