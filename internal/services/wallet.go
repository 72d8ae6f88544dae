package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusearn/backend/internal/models"
)

// TransactionReader is the read side of the transaction log.
type TransactionReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.TransactionRecord, error)
	List(ctx context.Context) ([]*models.TransactionRecord, error)
	ListExtended(ctx context.Context) ([]*models.TransactionRecordExtended, error)
}

// ActivityReader is the read side of the activity log.
type ActivityReader interface {
	List(ctx context.Context, limit int) ([]*models.ActivityLogEntry, error)
}

// UserReader loads users without locking.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Balances is the caller's two balances.
type Balances struct {
	WalletBalance  int64 `json:"wallet_balance"`
	DepositBalance int64 `json:"deposit_balance"`
}

// WalletService serves deposits and the balance and history read models.
type WalletService struct {
	Pool         TxBeginner
	Users        UserReader
	Ledger       *LedgerService
	Activity     ActivityAppender
	Transactions TransactionReader
	ActivityFeed ActivityReader
	Now          Clock
}

// Deposit credits the calling provider's deposit balance.
func (s *WalletService) Deposit(ctx context.Context, c models.Caller, amount int64) (int64, error) {
	if !c.AppRole.IsProvider() {
		return 0, fmt.Errorf("%w: only task posters and businesses hold a deposit balance", models.ErrForbidden)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be > 0", models.ErrInvalid)
	}
	var balance int64
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		var err error
		balance, err = s.Ledger.Deposit(ctx, tx, c.UserID, amount)
		if err != nil {
			return err
		}
		return logActivity(ctx, tx, s.Activity, s.Now, models.ActivityWalletCredited, c.UserID, nil)
	})
	return balance, err
}

func (s *WalletService) Balances(ctx context.Context, c models.Caller) (Balances, error) {
	u, err := s.Users.GetByID(ctx, c.UserID)
	if err != nil {
		return Balances{}, err
	}
	return Balances{WalletBalance: u.WalletBalance, DepositBalance: u.DepositBalance}, nil
}

// History returns the caller's own transactions, newest first.
func (s *WalletService) History(ctx context.Context, c models.Caller) ([]*models.TransactionRecord, error) {
	return s.Transactions.ListByUser(ctx, c.UserID)
}

// AllHistory returns every transaction. Admin only.
func (s *WalletService) AllHistory(ctx context.Context, c models.Caller) ([]*models.TransactionRecord, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return s.Transactions.List(ctx)
}

// AllHistoryExtended returns every transaction with its task title. Admin only.
func (s *WalletService) AllHistoryExtended(ctx context.Context, c models.Caller) ([]*models.TransactionRecordExtended, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return s.Transactions.ListExtended(ctx)
}

// ActivityLog returns the audit trail, newest first. Admin only.
func (s *WalletService) ActivityLog(ctx context.Context, c models.Caller, limit int) ([]*models.ActivityLogEntry, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return s.ActivityFeed.List(ctx, limit)
}
