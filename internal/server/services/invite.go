package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"teamvault/internal/server/models"
	"teamvault/internal/server/repositories/repomanager"
)

// InviteService issues one-time registration codes.
type InviteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewInviteService constructs an InviteService.
func NewInviteService(db *sql.DB, m repomanager.RepositoryManager) *InviteService {
	return &InviteService{db: db, repomanager: m}
}

// Generate creates and persists a fresh invite code.
func (s *InviteService) Generate(ctx context.Context) (*models.InviteCode, error) {
	code := uuid.NewString()
	invite, err := s.repomanager.Invites(s.db).Create(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("error creating invite: %v", err)
	}
	return invite, nil
}
