package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusearn/backend/internal/models"
)

// pgUniqueViolation is the SQLSTATE Postgres returns for a duplicate key.
const pgUniqueViolation = "23505"

// mapErr translates driver errors into the shared error taxonomy.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s already exists: %w", what, models.ErrConflict)
	}
	return err
}
