package models

import (
	"github.com/google/uuid"
)

type TransactionType string

const (
	TxDeposit     TransactionType = "deposit"
	TxWithdrawal  TransactionType = "withdrawal"
	TxTaskPayment TransactionType = "taskPayment"
	TxPayout      TransactionType = "payout"
)

// TransactionRecord is an immutable balance-affecting event.
type TransactionRecord struct {
	ID              uuid.UUID       `json:"id"`
	TransactionDate int64           `json:"transaction_date"`
	TransactionType TransactionType `json:"transaction_type"`
	User            uuid.UUID       `json:"user"`
	Amount          int64           `json:"amount"`
	RelatedTaskID   *uuid.UUID      `json:"related_task_id,omitempty"`
}

// TransactionRecordExtended adds the related task title for admin views.
type TransactionRecordExtended struct {
	TransactionRecord
	RelatedTaskTitle *string `json:"related_task_title,omitempty"`
}
