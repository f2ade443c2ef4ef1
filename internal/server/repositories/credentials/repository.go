package credentials

import (
	"context"

	"teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	Get(ctx context.Context, id string) (*models.Credential, error)
	ListByTeam(ctx context.Context, teamID string) ([]*models.Credential, error)
	Update(ctx context.Context, cred *models.Credential) error
	// UpdateCiphertext replaces only the encrypted secret and nonce,
	// used when re-encrypting under a rotated team key.
	UpdateCiphertext(ctx context.Context, id string, encryptedSecret, nonce []byte) error
	Delete(ctx context.Context, id string) error
}
