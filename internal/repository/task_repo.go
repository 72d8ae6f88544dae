package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusearn/backend/internal/models"
)

const taskColumns = `id, title, description, category, location, time_required, payment_amount, status,
	provider, accepted_by, proof_files, proof_submitted_at, revision_count, acceptance_deadline, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.Location, &t.TimeRequired, &t.PaymentAmount, &t.Status,
		&t.Provider, &t.AcceptedBy, &t.Proof.ProofFiles, &t.Proof.SubmittedAt, &t.RevisionCount, &t.AcceptanceDeadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.Proof.ProofFiles == nil {
		t.Proof.ProofFiles = []string{}
	}
	return &t, nil
}

func (r *TaskRepo) scanAll(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// CreateTx inserts a task inside the given transaction.
func (r *TaskRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, t.ID, t.Title, t.Description, t.Category, t.Location, t.TimeRequired, t.PaymentAmount, t.Status,
		t.Provider, t.AcceptedBy, t.Proof.ProofFiles, t.Proof.SubmittedAt, t.RevisionCount, t.AcceptanceDeadline, t.CreatedAt, t.UpdatedAt)
	return mapErr(err, "task")
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	return t, mapErr(err, "task")
}

// GetByIDForUpdate locks the task row for update. Call within a transaction.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	t, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	return t, mapErr(err, "task")
}

// UpdateTx writes the mutable lifecycle fields. payment_amount and provider
// are fixed at creation and never written here.
func (r *TaskRepo) UpdateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, accepted_by = $3, proof_files = $4, proof_submitted_at = $5,
			revision_count = $6, updated_at = $7
		WHERE id = $1
	`, t.ID, t.Status, t.AcceptedBy, t.Proof.ProofFiles, t.Proof.SubmittedAt, t.RevisionCount, t.UpdatedAt)
	return err
}

func (r *TaskRepo) List(ctx context.Context) ([]*models.Task, error) {
	return r.scanAll(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

func (r *TaskRepo) ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	return r.scanAll(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at DESC`, status)
}

// ListByUser returns tasks the user posted or accepted.
func (r *TaskRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	return r.scanAll(ctx, `SELECT `+taskColumns+` FROM tasks WHERE provider = $1 OR accepted_by = $1 ORDER BY created_at DESC`, userID)
}

// TaskCounts is the per-status breakdown used by the admin stats page.
type TaskCounts map[models.TaskStatus]int64

func (r *TaskRepo) CountByStatus(ctx context.Context) (TaskCounts, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := TaskCounts{}
	for rows.Next() {
		var s models.TaskStatus
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}
