package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusearn/backend/internal/models"
)

// AdStore persists ad placement settings.
type AdStore interface {
	List(ctx context.Context) ([]*models.AdPlacement, error)
	GetByType(ctx context.Context, t models.AdType) (*models.AdPlacement, error)
	Upsert(ctx context.Context, a *models.AdPlacement) error
	ReplaceAll(ctx context.Context, ads []*models.AdPlacement) error
}

// AdService manages ad placement records. Rendering is a client concern.
type AdService struct {
	Store    AdStore
	Defaults []*models.AdPlacement
}

func (s *AdService) List(ctx context.Context) ([]*models.AdPlacement, error) {
	return s.Store.List(ctx)
}

func (s *AdService) Get(ctx context.Context, t models.AdType) (*models.AdPlacement, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown ad type %q", models.ErrInvalid, t)
	}
	return s.Store.GetByType(ctx, t)
}

// Update replaces the placement for t. Admin only.
func (s *AdService) Update(ctx context.Context, c models.Caller, t models.AdType, in models.AdPlacement) (*models.AdPlacement, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown ad type %q", models.ErrInvalid, t)
	}
	if in.AdType != "" && in.AdType != t {
		return nil, fmt.Errorf("%w: ad_type %q does not match path %q", models.ErrInvalid, in.AdType, t)
	}
	if in.Frequency < 0 {
		return nil, fmt.Errorf("%w: frequency must be >= 0", models.ErrInvalid)
	}
	in.AdType = t
	if strings.TrimSpace(in.ID) == "" {
		in.ID = string(t)
	}
	if err := s.Store.Upsert(ctx, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Reset restores the default placements. Admin only.
func (s *AdService) Reset(ctx context.Context, c models.Caller) ([]*models.AdPlacement, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	if err := s.Store.ReplaceAll(ctx, s.Defaults); err != nil {
		return nil, err
	}
	return s.Defaults, nil
}
