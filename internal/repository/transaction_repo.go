package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusearn/backend/internal/models"
)

// TransactionRepo is the append-only transaction log. There is no update or
// delete path.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx appends a record inside the given transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, rec *models.TransactionRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, transaction_date, transaction_type, user_id, amount, related_task_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.TransactionDate, rec.TransactionType, rec.User, rec.Amount, rec.RelatedTaskID)
	return err
}

func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.TransactionRecord, error) {
	return r.list(ctx, `
		SELECT id, transaction_date, transaction_type, user_id, amount, related_task_id
		FROM transactions WHERE user_id = $1 ORDER BY transaction_date DESC
	`, userID)
}

func (r *TransactionRepo) List(ctx context.Context) ([]*models.TransactionRecord, error) {
	return r.list(ctx, `
		SELECT id, transaction_date, transaction_type, user_id, amount, related_task_id
		FROM transactions ORDER BY transaction_date DESC
	`)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]*models.TransactionRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.TransactionRecord{}
	for rows.Next() {
		var t models.TransactionRecord
		if err := rows.Scan(&t.ID, &t.TransactionDate, &t.TransactionType, &t.User, &t.Amount, &t.RelatedTaskID); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// ListExtended returns every record joined with its related task title.
func (r *TransactionRepo) ListExtended(ctx context.Context) ([]*models.TransactionRecordExtended, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.transaction_date, t.transaction_type, t.user_id, t.amount, t.related_task_id, k.title
		FROM transactions t LEFT JOIN tasks k ON k.id = t.related_task_id
		ORDER BY t.transaction_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.TransactionRecordExtended{}
	for rows.Next() {
		var t models.TransactionRecordExtended
		if err := rows.Scan(&t.ID, &t.TransactionDate, &t.TransactionType, &t.User, &t.Amount, &t.RelatedTaskID, &t.RelatedTaskTitle); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

// SumByType totals amounts per transaction type, optionally for one user.
func (r *TransactionRepo) SumByType(ctx context.Context, userID *uuid.UUID) (map[models.TransactionType]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT transaction_type, COALESCE(SUM(amount), 0)
		FROM transactions WHERE $1::uuid IS NULL OR user_id = $1
		GROUP BY transaction_type
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := map[models.TransactionType]int64{}
	for rows.Next() {
		var tt models.TransactionType
		var n int64
		if err := rows.Scan(&tt, &n); err != nil {
			return nil, err
		}
		sums[tt] = n
	}
	return sums, rows.Err()
}
