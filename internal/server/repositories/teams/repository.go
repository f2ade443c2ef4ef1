package teams

import (
	"context"

	"teamvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, team *models.Team) (*models.Team, error)
	Get(ctx context.Context, id string) (*models.Team, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Team, error)

	// Lock takes a row lock on the team, serializing key rotations against
	// each other and against concurrent member changes in other transactions.
	// Only meaningful when the repository is bound to a *sql.Tx.
	Lock(ctx context.Context, teamID string) error

	AddMember(ctx context.Context, member *models.TeamMember) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	GetMember(ctx context.Context, teamID, userID string) (*models.TeamMember, error)
	ListMembers(ctx context.Context, teamID string) ([]*models.TeamMember, error)

	CreateKeyAccess(ctx context.Context, access *models.TeamKeyAccess) error
	GetKeyAccess(ctx context.Context, teamID, userID string) (*models.TeamKeyAccess, error)
	DeleteKeyAccess(ctx context.Context, teamID, userID string) error
	// ReplaceKeyAccess swaps the ciphertext of an existing wrap in place,
	// used during key rotation.
	ReplaceKeyAccess(ctx context.Context, access *models.TeamKeyAccess) error
}
