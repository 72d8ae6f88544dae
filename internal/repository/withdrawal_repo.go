package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusearn/backend/internal/models"
)

const withdrawalColumns = `id, user_id, amount, status, created_at, processed_at, processed_by`

type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	if err := row.Scan(&w.ID, &w.User, &w.Amount, &w.Status, &w.CreatedAt, &w.ProcessedAt, &w.ProcessedBy); err != nil {
		return nil, err
	}
	return &w, nil
}

// CreateTx inserts a pending request. A reused id yields models.ErrConflict.
func (r *WithdrawalRepo) CreateTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO withdrawal_requests (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, w.ID, w.User, w.Amount, w.Status, w.CreatedAt, w.ProcessedAt, w.ProcessedBy)
	return mapErr(err, "withdrawal request")
}

// GetByIDForUpdate locks the request row for update. Call within a transaction.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	w, err := scanWithdrawal(tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id))
	return w, mapErr(err, "withdrawal request")
}

// UpdateStatusTx records the processing decision. The request amount and
// owner are never rewritten.
func (r *WithdrawalRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error {
	_, err := tx.Exec(ctx, `
		UPDATE withdrawal_requests SET status = $2, processed_at = $3, processed_by = $4
		WHERE id = $1
	`, w.ID, w.Status, w.ProcessedAt, w.ProcessedBy)
	return err
}

func (r *WithdrawalRepo) ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.WithdrawalRequest, error) {
	return r.list(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE status = $1 ORDER BY created_at`, status)
}

func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WithdrawalRequest, error) {
	return r.list(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *WithdrawalRepo) list(ctx context.Context, query string, args ...any) ([]*models.WithdrawalRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.WithdrawalRequest{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
