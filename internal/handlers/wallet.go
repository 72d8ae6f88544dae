package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
	"github.com/campusearn/backend/internal/services"
	"github.com/campusearn/backend/internal/validation"
)

// WalletOps is the wallet service surface the handler calls.
type WalletOps interface {
	Deposit(ctx context.Context, c models.Caller, amount int64) (int64, error)
	Balances(ctx context.Context, c models.Caller) (services.Balances, error)
	History(ctx context.Context, c models.Caller) ([]*models.TransactionRecord, error)
}

// WithdrawalOps is the withdrawal queue surface the handlers call.
type WithdrawalOps interface {
	Request(ctx context.Context, c models.Caller, id *uuid.UUID, amount int64) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, c models.Caller, id uuid.UUID) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, c models.Caller, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListPending(ctx context.Context, c models.Caller) ([]*models.WithdrawalRequest, error)
	ListMine(ctx context.Context, c models.Caller) ([]*models.WithdrawalRequest, error)
}

// WalletHandler serves deposits, balances, history and withdrawal requests.
type WalletHandler struct {
	Wallet      WalletOps
	Withdrawals WithdrawalOps
	Validator   *validation.Validator
	Logger      *slog.Logger
}

type amountRequest struct {
	ID     *uuid.UUID `json:"id,omitempty"`
	Amount int64      `json:"amount"`
}

// --- POST /api/v1/wallet/deposit ---

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decode(w, r, h.Validator, validation.Amount, &req) {
		return
	}
	balance, err := h.Wallet.Deposit(r.Context(), c, req.Amount)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "deposit", err)
		return
	}
	writeMutation(w, lifecycle.OpDeposit, http.StatusOK, map[string]int64{"deposit_balance": balance})
}

// --- GET /api/v1/wallet/balance ---

func (h *WalletHandler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	h.balance(w, r, func(b services.Balances) map[string]int64 {
		return map[string]int64{"wallet_balance": b.WalletBalance}
	})
}

// --- GET /api/v1/wallet/deposit ---

func (h *WalletHandler) DepositBalance(w http.ResponseWriter, r *http.Request) {
	h.balance(w, r, func(b services.Balances) map[string]int64 {
		return map[string]int64{"deposit_balance": b.DepositBalance}
	})
}

func (h *WalletHandler) balance(w http.ResponseWriter, r *http.Request, pick func(services.Balances) map[string]int64) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	b, err := h.Wallet.Balances(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "balance", err)
		return
	}
	writeJSON(w, http.StatusOK, pick(b))
}

// --- GET /api/v1/transactions ---

func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	recs, err := h.Wallet.History(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "transaction history", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// --- POST /api/v1/withdrawals ---

func (h *WalletHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decode(w, r, h.Validator, validation.Amount, &req) {
		return
	}
	wr, err := h.Withdrawals.Request(r.Context(), c, req.ID, req.Amount)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "request withdrawal", err)
		return
	}
	writeMutation(w, lifecycle.OpRequestWithdrawal, http.StatusCreated, wr)
}

// --- GET /api/v1/withdrawals ---

func (h *WalletHandler) MyWithdrawals(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.Withdrawals.ListMine(r.Context(), c)
	if err != nil {
		writeServiceError(w, loggerOr(h.Logger), "list withdrawals", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
