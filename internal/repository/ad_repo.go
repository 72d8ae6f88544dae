package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusearn/backend/internal/models"
)

type AdRepo struct {
	pool *pgxpool.Pool
}

func NewAdRepo(pool *pgxpool.Pool) *AdRepo {
	return &AdRepo{pool: pool}
}

func (r *AdRepo) List(ctx context.Context) ([]*models.AdPlacement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, ad_type, content, frequency FROM ad_placements ORDER BY ad_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.AdPlacement{}
	for rows.Next() {
		var a models.AdPlacement
		if err := rows.Scan(&a.ID, &a.AdType, &a.Content, &a.Frequency); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

func (r *AdRepo) GetByType(ctx context.Context, t models.AdType) (*models.AdPlacement, error) {
	var a models.AdPlacement
	err := r.pool.QueryRow(ctx, `SELECT id, ad_type, content, frequency FROM ad_placements WHERE ad_type = $1`, t).
		Scan(&a.ID, &a.AdType, &a.Content, &a.Frequency)
	if err != nil {
		return nil, mapErr(err, "ad placement")
	}
	return &a, nil
}

// Upsert stores the placement for its ad type, replacing any existing one.
func (r *AdRepo) Upsert(ctx context.Context, a *models.AdPlacement) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ad_placements (id, ad_type, content, frequency) VALUES ($1, $2, $3, $4)
		ON CONFLICT (ad_type) DO UPDATE SET id = excluded.id, content = excluded.content, frequency = excluded.frequency
	`, a.ID, a.AdType, a.Content, a.Frequency)
	return err
}

// ReplaceAll swaps the whole placement table for defaults in one transaction.
func (r *AdRepo) ReplaceAll(ctx context.Context, ads []*models.AdPlacement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `DELETE FROM ad_placements`); err != nil {
		return err
	}
	for _, a := range ads {
		if _, err := tx.Exec(ctx, `INSERT INTO ad_placements (id, ad_type, content, frequency) VALUES ($1, $2, $3, $4)`,
			a.ID, a.AdType, a.Content, a.Frequency); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
