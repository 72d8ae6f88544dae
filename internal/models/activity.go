package models

import (
	"github.com/google/uuid"
)

type ActivityAction string

const (
	ActivityTaskCreated         ActivityAction = "taskCreated"
	ActivityTaskAccepted        ActivityAction = "taskAccepted"
	ActivityProofUploaded       ActivityAction = "proofUploaded"
	ActivityTaskApproved        ActivityAction = "taskApproved"
	ActivityTaskRejected        ActivityAction = "taskRejected"
	ActivityWithdrawalRequested ActivityAction = "withdrawalRequested"
	ActivityWithdrawalApproved  ActivityAction = "withdrawalApproved"
	ActivityWithdrawalRejected  ActivityAction = "withdrawalRejected"
	ActivityWalletCredited      ActivityAction = "walletCredited"
	ActivityWalletDebited       ActivityAction = "walletDebited"
)

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID          uuid.UUID      `json:"id"`
	Action      ActivityAction `json:"action"`
	User        uuid.UUID      `json:"user"`
	Timestamp   int64          `json:"timestamp"`
	RelatedTask *uuid.UUID     `json:"related_task,omitempty"`
}
