package models

import (
	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusOpen            TaskStatus = "open"
	TaskStatusAssigned        TaskStatus = "assigned"
	TaskStatusInProgress      TaskStatus = "inProgress"
	TaskStatusProofSubmitted  TaskStatus = "proofSubmitted"
	TaskStatusUnderReview     TaskStatus = "underReview"
	TaskStatusPendingApproval TaskStatus = "pendingApproval"
	TaskStatusCompleted       TaskStatus = "completed"
	TaskStatusRejected        TaskStatus = "rejected"
	TaskStatusDeclined        TaskStatus = "declined"
)

// HasAssignee reports whether a task in this status carries accepted_by.
func (s TaskStatus) HasAssignee() bool {
	switch s {
	case TaskStatusAssigned, TaskStatusInProgress, TaskStatusProofSubmitted,
		TaskStatusUnderReview, TaskStatusCompleted, TaskStatusRejected:
		return true
	}
	return false
}

type TaskProof struct {
	ProofFiles  []string `json:"proof_files"`
	SubmittedAt int64    `json:"submitted_at"`
}

type Task struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Location           string     `json:"location"`
	TimeRequired       string     `json:"time_required"`
	PaymentAmount      int64      `json:"payment_amount"`
	Status             TaskStatus `json:"status"`
	Provider           uuid.UUID  `json:"provider"`
	AcceptedBy         *uuid.UUID `json:"accepted_by,omitempty"`
	Proof              TaskProof  `json:"proof"`
	RevisionCount      int        `json:"revision_count"`
	AcceptanceDeadline *int64     `json:"acceptance_deadline,omitempty"`
	CreatedAt          int64      `json:"created_at"`
	UpdatedAt          int64      `json:"updated_at"`
}
