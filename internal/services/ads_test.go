package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/models"
)

type memAds struct{ m map[models.AdType]models.AdPlacement }

func (s *memAds) List(context.Context) ([]*models.AdPlacement, error) {
	out := []*models.AdPlacement{}
	for _, a := range s.m {
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdType < out[j].AdType })
	return out, nil
}

func (s *memAds) GetByType(_ context.Context, t models.AdType) (*models.AdPlacement, error) {
	a, ok := s.m[t]
	if !ok {
		return nil, fmt.Errorf("ad %s: %w", t, models.ErrNotFound)
	}
	return &a, nil
}

func (s *memAds) Upsert(_ context.Context, a *models.AdPlacement) error {
	s.m[a.AdType] = *a
	return nil
}

func (s *memAds) ReplaceAll(_ context.Context, ads []*models.AdPlacement) error {
	s.m = map[models.AdType]models.AdPlacement{}
	for _, a := range ads {
		s.m[a.AdType] = *a
	}
	return nil
}

func TestAdService(t *testing.T) {
	ctx := context.Background()
	defaults := []*models.AdPlacement{
		{ID: "dashboardBanner", AdType: models.AdDashboardBanner, Content: "Earn more", Frequency: 1},
	}
	svc := &AdService{Store: &memAds{m: map[models.AdType]models.AdPlacement{}}, Defaults: defaults}
	admin := models.Caller{UserID: uuid.New(), Role: models.RoleAdmin}
	user := models.Caller{UserID: uuid.New(), Role: models.RoleUser}

	if _, err := svc.Update(ctx, user, models.AdTaskBanner, models.AdPlacement{}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("non-admin update: got %v, want ErrForbidden", err)
	}
	if _, err := svc.Update(ctx, admin, "popup", models.AdPlacement{}); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("unknown type: got %v, want ErrInvalid", err)
	}
	if _, err := svc.Update(ctx, admin, models.AdTaskBanner, models.AdPlacement{AdType: models.AdDashboardBanner}); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("mismatched type: got %v, want ErrInvalid", err)
	}
	if _, err := svc.Update(ctx, admin, models.AdTaskBanner, models.AdPlacement{Frequency: -1}); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("negative frequency: got %v, want ErrInvalid", err)
	}

	got, err := svc.Update(ctx, admin, models.AdTaskBanner, models.AdPlacement{Content: "Try tutoring", Frequency: 3})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := &models.AdPlacement{ID: "taskBanner", AdType: models.AdTaskBanner, Content: "Try tutoring", Frequency: 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("update mismatch (-want +got):\n%s", diff)
	}
	stored, err := svc.Get(ctx, models.AdTaskBanner)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.Reset(ctx, admin); err != nil {
		t.Fatal(err)
	}
	all, _ := svc.List(ctx)
	if diff := cmp.Diff(defaults, all); diff != "" {
		t.Errorf("after reset (-want +got):\n%s", diff)
	}
	if _, err := svc.Get(ctx, models.AdTaskBanner); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("after reset: got %v, want ErrNotFound", err)
	}
}
