package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/metrics"
	"github.com/campusearn/backend/internal/models"
)

// WithdrawalStore is the withdrawal repository surface used by WithdrawalService.
type WithdrawalStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, w *models.WithdrawalRequest) error
	ListByStatus(ctx context.Context, status models.WithdrawalStatus) ([]*models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.WithdrawalRequest, error)
}

// WithdrawalService is the queue of student payout requests awaiting admin
// processing.
type WithdrawalService struct {
	Pool        TxBeginner
	Withdrawals WithdrawalStore
	Users       LedgerUserRepo
	Ledger      *LedgerService
	Activity    ActivityAppender
	Logger      *slog.Logger
	Now         Clock
}

func (s *WithdrawalService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Request queues a withdrawal. id is optional; a client-chosen id that is
// already in use yields models.ErrConflict.
func (s *WithdrawalService) Request(ctx context.Context, c models.Caller, id *uuid.UUID, amount int64) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		user, err := s.Users.GetByIDForUpdate(ctx, tx, c.UserID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckWithdrawalRequest(c, amount, user.WalletBalance); err != nil {
			return err
		}
		req = &models.WithdrawalRequest{
			ID:        uuid.New(),
			User:      c.UserID,
			Amount:    amount,
			Status:    models.WithdrawalPending,
			CreatedAt: s.Now.nanos(),
		}
		if id != nil && *id != uuid.Nil {
			req.ID = *id
		}
		if err := s.Withdrawals.CreateTx(ctx, tx, req); err != nil {
			return err
		}
		return logActivity(ctx, tx, s.Activity, s.Now, models.ActivityWithdrawalRequested, c.UserID, nil)
	})
	if err != nil {
		return nil, err
	}
	s.logger().Info("withdrawal requested", "withdrawal_id", req.ID, "user", c.UserID, "amount", req.Amount)
	return req, nil
}

// Approve debits the requester's wallet and marks the request approved. The
// request row is locked so a second approval sees the terminal status.
func (s *WithdrawalService) Approve(ctx context.Context, c models.Caller, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		w, err := s.Withdrawals.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		user, err := s.Users.GetByIDForUpdate(ctx, tx, w.User)
		if err != nil {
			return err
		}
		if err := lifecycle.ApproveWithdrawal(w, c, user.WalletBalance, s.Now.nanos()); err != nil {
			return err
		}
		if _, err := s.Ledger.Withdraw(ctx, tx, w.User, w.Amount); err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}
		if err := s.Withdrawals.UpdateStatusTx(ctx, tx, w); err != nil {
			return err
		}
		if err := logActivity(ctx, tx, s.Activity, s.Now, models.ActivityWithdrawalApproved, c.UserID, nil); err != nil {
			return err
		}
		req = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.WithdrawalsProcessed.WithLabelValues(string(req.Status)).Inc()
	s.logger().Info("withdrawal approved", "withdrawal_id", req.ID, "user", req.User, "amount", req.Amount)
	return req, nil
}

// Reject closes a pending request without touching any balance.
func (s *WithdrawalService) Reject(ctx context.Context, c models.Caller, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		w, err := s.Withdrawals.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.RejectWithdrawal(w, c, s.Now.nanos()); err != nil {
			return err
		}
		if err := s.Withdrawals.UpdateStatusTx(ctx, tx, w); err != nil {
			return err
		}
		if err := logActivity(ctx, tx, s.Activity, s.Now, models.ActivityWithdrawalRejected, c.UserID, nil); err != nil {
			return err
		}
		req = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.WithdrawalsProcessed.WithLabelValues(string(req.Status)).Inc()
	s.logger().Info("withdrawal rejected", "withdrawal_id", req.ID, "user", req.User, "amount", req.Amount)
	return req, nil
}

// ListPending returns the queue oldest first. Admin only.
func (s *WithdrawalService) ListPending(ctx context.Context, c models.Caller) ([]*models.WithdrawalRequest, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return s.Withdrawals.ListByStatus(ctx, models.WithdrawalPending)
}

// ListMine returns the caller's own requests.
func (s *WithdrawalService) ListMine(ctx context.Context, c models.Caller) ([]*models.WithdrawalRequest, error) {
	return s.Withdrawals.ListByUser(ctx, c.UserID)
}
