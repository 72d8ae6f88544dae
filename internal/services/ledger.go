package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/metrics"
	"github.com/campusearn/backend/internal/models"
)

// LedgerService moves money between deposit balances, wallets and the
// platform commission account, writing one transaction record per movement.
// Every method must run inside the caller's transaction.
type LedgerService struct {
	Users        LedgerUserRepo
	Transactions LedgerTransactionRepo
	Now          Clock
}

// LedgerUserRepo is the minimal user repository interface for balance changes.
type LedgerUserRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	AddDeposit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	DeductDeposit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	AddWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
	DeductWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (int64, error)
}

// LedgerTransactionRepo is the append-only transaction log.
type LedgerTransactionRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rec *models.TransactionRecord) error
}

// NewLedgerService returns a new LedgerService.
func NewLedgerService(users LedgerUserRepo, transactions LedgerTransactionRepo) *LedgerService {
	return &LedgerService{Users: users, Transactions: transactions}
}

// Escrow moves a task's payment out of the provider's deposit balance.
func (s *LedgerService) Escrow(ctx context.Context, tx pgx.Tx, taskID, providerID uuid.UUID, amount int64) error {
	if _, err := s.Users.GetByIDForUpdate(ctx, tx, providerID); err != nil {
		return err
	}
	if _, err := s.Users.DeductDeposit(ctx, tx, providerID, amount); err != nil {
		return err
	}
	return s.record(ctx, tx, models.TxTaskPayment, providerID, amount, &taskID)
}

// Settle pays out a completed task: the student's share to their wallet and
// the commission to the platform account. Both accounts are locked in
// deterministic order to avoid deadlock.
func (s *LedgerService) Settle(ctx context.Context, tx pgx.Tx, taskID, studentID uuid.UUID, amount int64) (studentShare, commission int64, err error) {
	studentShare, commission = lifecycle.Split(amount)

	ids := []uuid.UUID{studentID, models.PlatformAccountID}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if _, err := s.Users.GetByIDForUpdate(ctx, tx, id); err != nil {
			return 0, 0, err
		}
	}

	// Student payout
	if studentShare > 0 {
		if _, err := s.Users.AddWallet(ctx, tx, studentID, studentShare); err != nil {
			return 0, 0, err
		}
		if err := s.record(ctx, tx, models.TxPayout, studentID, studentShare, &taskID); err != nil {
			return 0, 0, err
		}
	}

	// Platform commission
	if commission > 0 {
		if _, err := s.Users.AddWallet(ctx, tx, models.PlatformAccountID, commission); err != nil {
			return 0, 0, err
		}
		if err := s.record(ctx, tx, models.TxPayout, models.PlatformAccountID, commission, &taskID); err != nil {
			return 0, 0, err
		}
	}
	return studentShare, commission, nil
}

// Refund returns an escrowed payment to the provider's deposit balance.
func (s *LedgerService) Refund(ctx context.Context, tx pgx.Tx, taskID, providerID uuid.UUID, amount int64) error {
	if _, err := s.Users.GetByIDForUpdate(ctx, tx, providerID); err != nil {
		return err
	}
	if _, err := s.Users.AddDeposit(ctx, tx, providerID, amount); err != nil {
		return err
	}
	return s.record(ctx, tx, models.TxDeposit, providerID, amount, &taskID)
}

// Deposit credits a provider's deposit balance and returns the new balance.
func (s *LedgerService) Deposit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error) {
	if _, err := s.Users.GetByIDForUpdate(ctx, tx, userID); err != nil {
		return 0, err
	}
	balance, err := s.Users.AddDeposit(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}
	return balance, s.record(ctx, tx, models.TxDeposit, userID, amount, nil)
}

// Withdraw debits a wallet for an approved withdrawal. The wallet must cover
// amount at this point; models.ErrInsufficientFunds otherwise.
func (s *LedgerService) Withdraw(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (int64, error) {
	balance, err := s.Users.DeductWallet(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}
	return balance, s.record(ctx, tx, models.TxWithdrawal, userID, amount, nil)
}

func (s *LedgerService) record(ctx context.Context, tx pgx.Tx, typ models.TransactionType, user uuid.UUID, amount int64, taskID *uuid.UUID) error {
	err := s.Transactions.CreateTx(ctx, tx, &models.TransactionRecord{
		ID:              uuid.New(),
		TransactionDate: s.Now.nanos(),
		TransactionType: typ,
		User:            user,
		Amount:          amount,
		RelatedTaskID:   taskID,
	})
	if err == nil {
		metrics.AmountMoved.WithLabelValues(string(typ)).Add(float64(amount))
	}
	return err
}
