package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamvault/internal/common"
	"teamvault/internal/cryptox"
	"teamvault/internal/dbx"
	"teamvault/internal/server/models"
	"teamvault/internal/server/repositories/repomanager"
)

// TeamService manages teams, memberships, and the wrapped copies of each
// team key. Plaintext team keys exist only inside a single request; every
// mutation that touches a membership and its wrap runs in one transaction so
// the two can never drift apart.
type TeamService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewTeamService constructs a TeamService.
func NewTeamService(db *sql.DB, m repomanager.RepositoryManager) *TeamService {
	return &TeamService{db: db, repomanager: m}
}

// Create provisions a new team: fresh team key, wrapped for the creator, and
// an admin membership, all in one transaction. The plaintext key is wiped
// before returning.
func (s *TeamService) Create(ctx context.Context, userID, name string) (*models.Team, error) {
	if name == "" {
		return nil, common.ErrWeakInput
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	teamKey := cryptox.NewTeamKey()
	defer common.WipeByteArray(teamKey)
	wrappedKey, wrapNonce, err := cryptox.WrapTeamKey(teamKey, user.PublicKey)
	if err != nil {
		return nil, common.ErrorInternal
	}

	team := &models.Team{Name: name}
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		teamRepo := s.repomanager.Teams(tx)
		created, err := teamRepo.Create(ctx, team)
		if err != nil {
			return fmt.Errorf("error creating team: %v", err)
		}
		team = created
		if err := teamRepo.AddMember(ctx, &models.TeamMember{
			TeamID: team.ID, UserID: userID, Role: models.RoleAdmin,
		}); err != nil {
			return fmt.Errorf("error adding member: %v", err)
		}
		if err := teamRepo.CreateKeyAccess(ctx, &models.TeamKeyAccess{
			TeamID: team.ID, UserID: userID, EncryptedTeamKey: wrappedKey, Nonce: wrapNonce,
		}); err != nil {
			return fmt.Errorf("error creating key access: %v", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return team, nil
}

// AddMember grants newUserID access to the team. The caller proves access by
// unwrapping their own copy of the team key with callerPrivateKey; the key is
// then rewrapped for the new member's public key. The unwrap, the rewrap, and
// both inserts run in one transaction holding the team row lock, so a
// concurrent rotation cannot retire the key between the caller's unwrap and
// the new member's wrap.
func (s *TeamService) AddMember(ctx context.Context, callerID string, callerPrivateKey []byte, teamID, newUserID string, role models.Role) error {
	if role != models.RoleMember && role != models.RoleAdmin {
		return common.ErrWeakInput
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		teamRepo := s.repomanager.Teams(tx)

		if err := teamRepo.Lock(ctx, teamID); err != nil {
			return err
		}
		if err := s.requireAdmin(ctx, tx, teamID, callerID); err != nil {
			return err
		}

		teamKey, err := s.unwrapForCaller(ctx, tx, teamID, callerID, callerPrivateKey)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(teamKey)

		newUser, err := s.repomanager.Users(tx).GetByID(ctx, newUserID)
		if err != nil {
			return err
		}
		wrappedKey, wrapNonce, err := cryptox.WrapTeamKey(teamKey, newUser.PublicKey)
		if err != nil {
			return common.ErrorInternal
		}

		if err := teamRepo.AddMember(ctx, &models.TeamMember{
			TeamID: teamID, UserID: newUserID, Role: role,
		}); err != nil {
			return fmt.Errorf("error adding member: %v", err)
		}
		if err := teamRepo.CreateKeyAccess(ctx, &models.TeamKeyAccess{
			TeamID: teamID, UserID: newUserID, EncryptedTeamKey: wrappedKey, Nonce: wrapNonce,
		}); err != nil {
			return fmt.Errorf("error creating key access: %v", err)
		}
		return nil
	})
}

// RemoveMember deletes the membership and its wrap in one transaction. The
// removed member can no longer obtain the wrapped key, but the team key
// itself is unchanged; rotate it separately to revoke knowledge the member
// may have kept.
func (s *TeamService) RemoveMember(ctx context.Context, callerID, teamID, userID string) error {
	if err := s.requireAdmin(ctx, s.db, teamID, callerID); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		teamRepo := s.repomanager.Teams(tx)
		if err := teamRepo.DeleteKeyAccess(ctx, teamID, userID); err != nil {
			return err
		}
		if err := teamRepo.RemoveMember(ctx, teamID, userID); err != nil {
			return err
		}
		return nil
	})
}

// RotateKey replaces the team key: every credential is re-encrypted and every
// remaining member's wrap is replaced, in one transaction holding a row lock
// on the team so concurrent rotations and member changes serialize. A
// membership found without a wrap aborts with common.ErrConsistency; nothing
// is repaired in place.
func (s *TeamService) RotateKey(ctx context.Context, callerID string, callerPrivateKey []byte, teamID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		teamRepo := s.repomanager.Teams(tx)

		if err := teamRepo.Lock(ctx, teamID); err != nil {
			return err
		}
		if err := s.requireAdmin(ctx, tx, teamID, callerID); err != nil {
			return err
		}

		oldKey, err := s.unwrapForCaller(ctx, tx, teamID, callerID, callerPrivateKey)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(oldKey)

		newKey := cryptox.NewTeamKey()
		defer common.WipeByteArray(newKey)

		credRepo := s.repomanager.Credentials(tx)
		creds, err := credRepo.ListByTeam(ctx, teamID)
		if err != nil {
			return err
		}
		for _, cred := range creds {
			plaintext, err := cryptox.DecryptSecret(oldKey, cred.EncryptedSecret, cred.Nonce)
			if err != nil {
				return err
			}
			ciphertext, nonce, err := cryptox.EncryptSecret(newKey, plaintext)
			common.WipeByteArray(plaintext)
			if err != nil {
				return common.ErrorInternal
			}
			if err := credRepo.UpdateCiphertext(ctx, cred.ID, ciphertext, nonce); err != nil {
				return err
			}
		}

		members, err := teamRepo.ListMembers(ctx, teamID)
		if err != nil {
			return err
		}
		userRepo := s.repomanager.Users(tx)
		for _, member := range members {
			user, err := userRepo.GetByID(ctx, member.UserID)
			if err != nil {
				return err
			}
			wrappedKey, wrapNonce, err := cryptox.WrapTeamKey(newKey, user.PublicKey)
			if err != nil {
				return common.ErrorInternal
			}
			if err := teamRepo.ReplaceKeyAccess(ctx, &models.TeamKeyAccess{
				TeamID: teamID, UserID: member.UserID, EncryptedTeamKey: wrappedKey, Nonce: wrapNonce,
			}); err != nil {
				// a member with no wrap means the stored state is broken
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrConsistency
				}
				return err
			}
		}
		return nil
	})
}

// GetKeyAccess returns the caller's own wrapped team key so the client can
// unwrap it locally. No row means the caller is not a member.
func (s *TeamService) GetKeyAccess(ctx context.Context, userID, teamID string) (*models.TeamKeyAccess, error) {
	access, err := s.repomanager.Teams(s.db).GetKeyAccess(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotAMember
		}
		return nil, err
	}
	return access, nil
}

// List returns the teams the user belongs to.
func (s *TeamService) List(ctx context.Context, userID string) ([]*models.Team, error) {
	return s.repomanager.Teams(s.db).ListByUser(ctx, userID)
}

// ListMembers returns the team's member list. Only members may see it.
func (s *TeamService) ListMembers(ctx context.Context, callerID, teamID string) ([]*models.TeamMember, error) {
	teamRepo := s.repomanager.Teams(s.db)
	if _, err := teamRepo.GetMember(ctx, teamID, callerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotAMember
		}
		return nil, err
	}
	return teamRepo.ListMembers(ctx, teamID)
}

// requireAdmin checks that userID holds the admin role in the team.
func (s *TeamService) requireAdmin(ctx context.Context, db dbx.DBTX, teamID, userID string) error {
	member, err := s.repomanager.Teams(db).GetMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return err
	}
	if member.Role != models.RoleAdmin {
		return common.ErrorUnauthorized
	}
	return nil
}

// unwrapForCaller fetches the caller's wrap and opens it with their private
// key. A missing wrap yields common.ErrNotAMember, a failed unwrap
// common.ErrDecryption.
func (s *TeamService) unwrapForCaller(ctx context.Context, db dbx.DBTX, teamID, callerID string, callerPrivateKey []byte) ([]byte, error) {
	access, err := s.repomanager.Teams(db).GetKeyAccess(ctx, teamID, callerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrNotAMember
		}
		return nil, err
	}
	return cryptox.UnwrapTeamKey(access.EncryptedTeamKey, access.Nonce, callerPrivateKey)
}
