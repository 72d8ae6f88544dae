package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/campusearn/backend/internal/models"
	"github.com/campusearn/backend/internal/repository"
)

// StatsSources are the read models the admin dashboard aggregates.
type StatsSources interface {
	UserCounts(ctx context.Context) (repository.UserCounts, error)
	TaskCounts(ctx context.Context) (repository.TaskCounts, error)
	TransactionTotals(ctx context.Context, userID *uuid.UUID) (map[models.TransactionType]int64, error)
	PendingWithdrawals(ctx context.Context) ([]*models.WithdrawalRequest, error)
	Platform(ctx context.Context) (*models.User, error)
}

// SystemStats is the admin overview.
type SystemStats struct {
	Users              repository.UserCounts            `json:"users"`
	Tasks              repository.TaskCounts            `json:"tasks"`
	Volume             map[models.TransactionType]int64 `json:"volume"`
	PendingWithdrawals int                              `json:"pending_withdrawals"`
	PendingAmount      int64                            `json:"pending_withdrawal_amount"`
	CommissionBalance  int64                            `json:"commission_balance"`
}

// Commission is the platform's earnings summary.
type Commission struct {
	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"total_earned"`
	Percent     int   `json:"percent"`
}

// StatsService aggregates independent read models concurrently.
type StatsService struct {
	Sources StatsSources
	Percent int
}

func (s *StatsService) Stats(ctx context.Context, c models.Caller) (*SystemStats, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	var out SystemStats
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() error {
		var err error
		out.Users, err = s.Sources.UserCounts(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Tasks, err = s.Sources.TaskCounts(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Volume, err = s.Sources.TransactionTotals(gCtx, nil)
		return err
	})
	g.Go(func() error {
		pending, err := s.Sources.PendingWithdrawals(gCtx)
		if err != nil {
			return err
		}
		out.PendingWithdrawals = len(pending)
		for _, w := range pending {
			out.PendingAmount += w.Amount
		}
		return nil
	})
	g.Go(func() error {
		p, err := s.Sources.Platform(gCtx)
		if err != nil {
			return err
		}
		out.CommissionBalance = p.WalletBalance
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	return &out, nil
}

// Commission reports the platform account's balance and lifetime earnings.
func (s *StatsService) Commission(ctx context.Context, c models.Caller) (*Commission, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	out := Commission{Percent: s.Percent}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.Sources.Platform(gCtx)
		if err != nil {
			return err
		}
		out.Balance = p.WalletBalance
		return nil
	})
	g.Go(func() error {
		id := models.PlatformAccountID
		totals, err := s.Sources.TransactionTotals(gCtx, &id)
		if err != nil {
			return err
		}
		out.TotalEarned = totals[models.TxPayout]
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect commission: %w", err)
	}
	return &out, nil
}

// RepoStatsSources adapts the Postgres repositories to StatsSources.
type RepoStatsSources struct {
	Users        *repository.UserRepo
	Tasks        *repository.TaskRepo
	Transactions *repository.TransactionRepo
	Withdrawals  *repository.WithdrawalRepo
}

func (r RepoStatsSources) UserCounts(ctx context.Context) (repository.UserCounts, error) {
	return r.Users.Counts(ctx)
}

func (r RepoStatsSources) TaskCounts(ctx context.Context) (repository.TaskCounts, error) {
	return r.Tasks.CountByStatus(ctx)
}

func (r RepoStatsSources) TransactionTotals(ctx context.Context, userID *uuid.UUID) (map[models.TransactionType]int64, error) {
	return r.Transactions.SumByType(ctx, userID)
}

func (r RepoStatsSources) PendingWithdrawals(ctx context.Context) ([]*models.WithdrawalRequest, error) {
	return r.Withdrawals.ListByStatus(ctx, models.WithdrawalPending)
}

func (r RepoStatsSources) Platform(ctx context.Context) (*models.User, error) {
	return r.Users.GetByID(ctx, models.PlatformAccountID)
}
