package invites

import (
	"context"

	"teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code string) (*models.InviteCode, error)
	// Consume marks the code used. Returns common.ErrorNotFound when the
	// code does not exist or was already used; the two cases are not
	// distinguished so codes cannot be probed.
	Consume(ctx context.Context, code string) error
}
