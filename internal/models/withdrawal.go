package models

import (
	"github.com/google/uuid"
)

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalApproved || s == WithdrawalRejected
}

type WithdrawalRequest struct {
	ID          uuid.UUID        `json:"id"`
	User        uuid.UUID        `json:"user"`
	Amount      int64            `json:"amount"`
	Status      WithdrawalStatus `json:"status"`
	CreatedAt   int64            `json:"created_at"`
	ProcessedAt *int64           `json:"processed_at,omitempty"`
	ProcessedBy *uuid.UUID       `json:"processed_by,omitempty"`
}
