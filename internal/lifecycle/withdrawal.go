package lifecycle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/models"
)

// CheckWithdrawalRequest validates a new withdrawal. The balance check is
// advisory; it is repeated when the request is approved.
func CheckWithdrawalRequest(c models.Caller, amount, walletBalance int64) error {
	if c.AppRole != models.AppRoleStudent {
		return fmt.Errorf("%w: only students can request withdrawals", models.ErrForbidden)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", models.ErrInvalid)
	}
	if amount > walletBalance {
		return fmt.Errorf("%w: wallet balance %d < %d", models.ErrInsufficientFunds, walletBalance, amount)
	}
	return nil
}

// ApproveWithdrawal marks a pending request approved. walletBalance is the
// requester's balance read under lock in the approving transaction.
func ApproveWithdrawal(w *models.WithdrawalRequest, c models.Caller, walletBalance, now int64) error {
	if err := processable(w, c); err != nil {
		return err
	}
	if walletBalance < w.Amount {
		return fmt.Errorf("%w: wallet balance %d < %d", models.ErrInsufficientFunds, walletBalance, w.Amount)
	}
	markProcessed(w, c.UserID, models.WithdrawalApproved, now)
	return nil
}

// RejectWithdrawal marks a pending request rejected. No balance changes.
func RejectWithdrawal(w *models.WithdrawalRequest, c models.Caller, now int64) error {
	if err := processable(w, c); err != nil {
		return err
	}
	markProcessed(w, c.UserID, models.WithdrawalRejected, now)
	return nil
}

func processable(w *models.WithdrawalRequest, c models.Caller) error {
	if !c.IsAdmin() {
		return fmt.Errorf("%w: only admins can process withdrawals", models.ErrForbidden)
	}
	if w.Status.Terminal() {
		return fmt.Errorf("%w: withdrawal already %s", models.ErrConflict, w.Status)
	}
	return nil
}

func markProcessed(w *models.WithdrawalRequest, admin uuid.UUID, status models.WithdrawalStatus, now int64) {
	w.Status = status
	w.ProcessedAt = &now
	w.ProcessedBy = &admin
}
