package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamvault/internal/common"
	"teamvault/internal/cryptox"
	"teamvault/internal/server/models"
	"teamvault/internal/server/repositories/repomanager"
)

// CredentialService stores and reveals team secrets. Every operation resolves
// the team key through the caller's own wrap, so possession of the caller's
// private key is proven on each request. Plaintext secrets never outlive the
// request.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager) *CredentialService {
	return &CredentialService{db: db, repomanager: m}
}

// Create encrypts the secret under the team key and persists the credential.
func (s *CredentialService) Create(ctx context.Context, userID string, privateKey []byte, teamID, title, hostname, username string, kind models.SecretKind, secret []byte) (*models.Credential, error) {
	if title == "" || len(secret) == 0 {
		return nil, common.ErrWeakInput
	}
	if kind != models.KindPassword && kind != models.KindSSHKey {
		return nil, common.ErrWeakInput
	}

	teamKey, err := s.resolveTeamKey(ctx, userID, privateKey, teamID)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(teamKey)

	ciphertext, nonce, err := cryptox.EncryptSecret(teamKey, secret)
	if err != nil {
		return nil, common.ErrorInternal
	}

	cred := &models.Credential{
		TeamID:          teamID,
		Title:           title,
		Hostname:        hostname,
		Username:        username,
		Kind:            kind,
		EncryptedSecret: ciphertext,
		Nonce:           nonce,
	}
	created, err := s.repomanager.Credentials(s.db).Create(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("error creating credential: %v", err)
	}
	return created, nil
}

// Update rewrites a credential's metadata and secret. The caller must be a
// member of the owning team.
func (s *CredentialService) Update(ctx context.Context, userID string, privateKey []byte, credentialID, title, hostname, username string, kind models.SecretKind, secret []byte) error {
	if title == "" || len(secret) == 0 {
		return common.ErrWeakInput
	}
	if kind != models.KindPassword && kind != models.KindSSHKey {
		return common.ErrWeakInput
	}

	repo := s.repomanager.Credentials(s.db)
	cred, err := repo.Get(ctx, credentialID)
	if err != nil {
		return err
	}

	teamKey, err := s.resolveTeamKey(ctx, userID, privateKey, cred.TeamID)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(teamKey)

	ciphertext, nonce, err := cryptox.EncryptSecret(teamKey, secret)
	if err != nil {
		return common.ErrorInternal
	}

	cred.Title = title
	cred.Hostname = hostname
	cred.Username = username
	cred.Kind = kind
	cred.EncryptedSecret = ciphertext
	cred.Nonce = nonce
	return repo.Update(ctx, cred)
}

// Reveal decrypts a credential's secret for the caller. The plaintext is
// returned only to the request that proved the private key; the caller must
// wipe it after use.
func (s *CredentialService) Reveal(ctx context.Context, userID string, privateKey []byte, credentialID string) ([]byte, error) {
	cred, err := s.repomanager.Credentials(s.db).Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	teamKey, err := s.resolveTeamKey(ctx, userID, privateKey, cred.TeamID)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(teamKey)

	return cryptox.DecryptSecret(teamKey, cred.EncryptedSecret, cred.Nonce)
}

// List returns the team's credentials with ciphertext fields cleared:
// listings carry metadata only.
func (s *CredentialService) List(ctx context.Context, userID, teamID string) ([]*models.Credential, error) {
	if err := s.requireMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	creds, err := s.repomanager.Credentials(s.db).ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for _, cred := range creds {
		cred.EncryptedSecret = nil
		cred.Nonce = nil
	}
	return creds, nil
}

// Delete removes a credential. Any member of the owning team may delete.
func (s *CredentialService) Delete(ctx context.Context, userID, credentialID string) error {
	repo := s.repomanager.Credentials(s.db)
	cred, err := repo.Get(ctx, credentialID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, cred.TeamID, userID); err != nil {
		return err
	}
	return repo.Delete(ctx, credentialID)
}

func (s *CredentialService) requireMember(ctx context.Context, teamID, userID string) error {
	if _, err := s.repomanager.Teams(s.db).GetMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrNotAMember
		}
		return err
	}
	return nil
}

// resolveTeamKey verifies membership, fetches the caller's wrap, and opens
// it. A membership without a wrap is broken stored state and yields
// common.ErrConsistency.
func (s *CredentialService) resolveTeamKey(ctx context.Context, userID string, privateKey []byte, teamID string) ([]byte, error) {
	teamRepo := s.repomanager.Teams(s.db)
	if _, err := teamRepo.GetMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotAMember
		}
		return nil, err
	}
	access, err := teamRepo.GetKeyAccess(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrConsistency
		}
		return nil, err
	}
	return cryptox.UnwrapTeamKey(access.EncryptedTeamKey, access.Nonce, privateKey)
}
