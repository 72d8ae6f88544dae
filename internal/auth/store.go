package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/models"
)

// Store is the user persistence auth needs. *repository.UserRepo satisfies it.
type Store interface {
	Create(ctx context.Context, u *models.User, bootstrapAdmin bool) error
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
