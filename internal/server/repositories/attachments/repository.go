package attachments

import (
	"context"

	"teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, att *models.Attachment) (*models.Attachment, error)
	Get(ctx context.Context, id string) (*models.Attachment, error)
	ListByCredential(ctx context.Context, credentialID string) ([]*models.Attachment, error)
	MarkUploaded(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
