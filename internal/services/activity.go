package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusearn/backend/internal/models"
)

// ActivityAppender is the append-only activity log.
type ActivityAppender interface {
	AppendTx(ctx context.Context, tx pgx.Tx, e *models.ActivityLogEntry) error
}

func logActivity(ctx context.Context, tx pgx.Tx, log ActivityAppender, now Clock, action models.ActivityAction, user uuid.UUID, task *uuid.UUID) error {
	return log.AppendTx(ctx, tx, &models.ActivityLogEntry{
		ID:          uuid.New(),
		Action:      action,
		User:        user,
		Timestamp:   now.nanos(),
		RelatedTask: task,
	})
}
