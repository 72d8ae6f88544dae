package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusearn/backend/internal/models"
)

// ActivityRepo is the append-only audit trail.
type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) AppendTx(ctx context.Context, tx pgx.Tx, e *models.ActivityLogEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO activity_log (id, action, user_id, timestamp, related_task)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.Action, e.User, e.Timestamp, e.RelatedTask)
	return err
}

// List returns the newest entries first. limit <= 0 returns everything.
func (r *ActivityRepo) List(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error) {
	query := `SELECT id, action, user_id, timestamp, related_task FROM activity_log ORDER BY timestamp DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.ActivityLogEntry{}
	for rows.Next() {
		var e models.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.User, &e.Timestamp, &e.RelatedTask); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
