package users

import (
	"context"

	"teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdateEnvelope rewrites the password-derived material (salt, verifier,
	// private-key envelope) while leaving the public key untouched.
	UpdateEnvelope(ctx context.Context, user *models.User) error
}
