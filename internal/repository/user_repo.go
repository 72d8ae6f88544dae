package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusearn/backend/internal/models"
)

const userColumns = `id, name, phone_number, password_hash, role, app_role, verified, pending_verification,
	verification_document, college, year, pending_college, pending_year, profile_picture,
	deposit_balance, wallet_balance, is_system_account, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.PhoneNumber, &u.PasswordHash, &u.Role, &u.AppRole, &u.Verified, &u.PendingVerification,
		&u.VerificationDocument, &u.College, &u.Year, &u.PendingCollege, &u.PendingYear, &u.ProfilePicture,
		&u.DepositBalance, &u.WalletBalance, &u.IsSystemAccount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. When bootstrapAdmin is set and no other non-system
// user exists yet, the row is stored as admin; u.Role reflects what was stored.
func (r *UserRepo) Create(ctx context.Context, u *models.User, bootstrapAdmin bool) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, phone_number, password_hash, role, app_role, created_at, updated_at)
		SELECT $1, $2, $3, $4,
			CASE WHEN $7 AND NOT EXISTS (SELECT 1 FROM users WHERE NOT is_system_account) THEN 'admin' ELSE $5 END,
			$6, $8, $8
		RETURNING role
	`, u.ID, u.Name, u.PhoneNumber, u.PasswordHash, u.Role, u.AppRole, bootstrapAdmin, u.CreatedAt).Scan(&u.Role)
	if err != nil {
		return mapErr(err, "phone number")
	}
	u.UpdatedAt = u.CreatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, mapErr(err, "user")
}

// GetByPhone returns the non-system user registered with phone.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = $1 AND NOT is_system_account`, phone))
	return u, mapErr(err, "user")
}

// GetByIDForUpdate locks the user row for update. Call within a transaction.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	return u, mapErr(err, "user")
}

func (r *UserRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE NOT is_system_account ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// AddDeposit credits the deposit balance and returns the new balance.
func (r *UserRepo) AddDeposit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return r.adjust(ctx, tx, "deposit_balance", id, amount)
}

// DeductDeposit debits the deposit balance if it covers amount.
func (r *UserRepo) DeductDeposit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return r.adjust(ctx, tx, "deposit_balance", id, -amount)
}

// AddWallet credits the wallet balance and returns the new balance.
func (r *UserRepo) AddWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return r.adjust(ctx, tx, "wallet_balance", id, amount)
}

// DeductWallet debits the wallet balance if it covers amount.
func (r *UserRepo) DeductWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error) {
	return r.adjust(ctx, tx, "wallet_balance", id, -amount)
}

// adjust applies delta to column only when the result stays non-negative.
// column is one of two constants above, never user input.
func (r *UserRepo) adjust(ctx context.Context, tx pgx.Tx, column string, id uuid.UUID, delta int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE users SET %[1]s = %[1]s + $1, updated_at = $3
		WHERE id = $2 AND %[1]s + $1 >= 0
		RETURNING %[1]s
	`, column), delta, id, models.Nanos(nowFn())).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByIDForUpdate(ctx, tx, id); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("%s of user %s: %w", column, id, models.ErrInsufficientFunds)
	}
	return newBalance, err
}

// UpdateProfileTx writes the caller-editable fields. Balances, role and
// verification state are not touched.
func (r *UserRepo) UpdateProfileTx(ctx context.Context, tx pgx.Tx, u *models.User) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET name = $2, phone_number = $3, app_role = $4, profile_picture = $5,
			pending_college = $6, pending_year = $7, updated_at = $8
		WHERE id = $1
	`, u.ID, u.Name, u.PhoneNumber, u.AppRole, u.ProfilePicture, u.PendingCollege, u.PendingYear, u.UpdatedAt)
	return mapErr(err, "phone number")
}

// UpdateVerificationTx writes college verification state.
func (r *UserRepo) UpdateVerificationTx(ctx context.Context, tx pgx.Tx, u *models.User) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET verified = $2, pending_verification = $3, verification_document = $4,
			college = $5, year = $6, pending_college = $7, pending_year = $8, updated_at = $9
		WHERE id = $1
	`, u.ID, u.Verified, u.PendingVerification, u.VerificationDocument, u.College, u.Year, u.PendingCollege, u.PendingYear, u.UpdatedAt)
	return err
}

// SetRoleTx changes the platform access role.
func (r *UserRepo) SetRoleTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, role models.UserRole, now int64) error {
	tag, err := tx.Exec(ctx, `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1 AND NOT is_system_account`, id, role, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ListPendingVerifications returns users awaiting college verification.
func (r *UserRepo) ListPendingVerifications(ctx context.Context) ([]*models.VerificationRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, pending_college, pending_year, COALESCE(verification_document, '')
		FROM users WHERE pending_verification ORDER BY updated_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.VerificationRequest
	for rows.Next() {
		var v models.VerificationRequest
		if err := rows.Scan(&v.User, &v.Name, &v.College, &v.Year, &v.VerificationDocument); err != nil {
			return nil, err
		}
		list = append(list, &v)
	}
	return list, rows.Err()
}

// UserCounts is the per-app-role breakdown used by the admin stats page.
type UserCounts struct {
	Total     int64 `json:"total"`
	Students  int64 `json:"students"`
	Providers int64 `json:"providers"`
	Verified  int64 `json:"verified"`
}

func (r *UserRepo) Counts(ctx context.Context) (UserCounts, error) {
	var c UserCounts
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE app_role = 'student'),
			COUNT(*) FILTER (WHERE app_role IN ('taskPoster', 'business')),
			COUNT(*) FILTER (WHERE verified)
		FROM users WHERE NOT is_system_account
	`).Scan(&c.Total, &c.Students, &c.Providers, &c.Verified)
	return c, err
}
