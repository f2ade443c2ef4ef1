// Package services contains server-side business logic. This file implements
// UserService, which handles invite-gated registration, login, password
// changes, and issuing/refreshing JWTs plus server-stored refresh tokens.
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"teamvault/internal/common"
	"teamvault/internal/cryptox"
	"teamvault/internal/dbx"
	"teamvault/internal/server/auth"
	"teamvault/internal/server/config"
	"teamvault/internal/server/models"
	"teamvault/internal/server/repositories/repomanager"
)

// PersonalTeamName is the name of the team auto-provisioned at signup.
const PersonalTeamName = "Personal"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides account and authentication operations:
// - Register: invite-gated signup with full key provisioning
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - ChangePassword: rewrap the private-key envelope under a new password
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a user from an invite code. The whole signup is one
// transaction: consume the code, store the user with salt, verifier, public
// key, and private-key envelope, create the personal team, and wrap the
// personal team key for the new user. An absent or spent code yields
// common.ErrorForbidden and nothing is persisted.
func (s *UserService) Register(ctx context.Context, inviteCode, email, name string, password []byte) (*models.User, error) {
	if inviteCode == "" || email == "" || name == "" || len(password) == 0 {
		return nil, common.ErrWeakInput
	}

	// Key material is derived before the transaction so the expensive
	// Argon2id work happens without holding any locks.
	publicKey, env, err := cryptox.NewIdentity(password)
	if err != nil {
		return nil, common.ErrorInternal
	}
	verifier, err := cryptox.MakeVerifier(password, env.Salt)
	if err != nil {
		return nil, err
	}

	teamKey := cryptox.NewTeamKey()
	defer common.WipeByteArray(teamKey)
	wrappedKey, wrapNonce, err := cryptox.WrapTeamKey(teamKey, publicKey)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Email:               email,
		Name:                name,
		Salt:                env.Salt,
		Verifier:            verifier,
		PublicKey:           publicKey,
		EncryptedPrivateKey: env.Ciphertext,
		PrivateKeyNonce:     env.Nonce,
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Invites(tx).Consume(ctx, inviteCode); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorForbidden
			}
			return err
		}

		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return fmt.Errorf("error creating user: %v", err)
		}
		user = created

		teamRepo := s.repomanager.Teams(tx)
		team, err := teamRepo.Create(ctx, &models.Team{Name: PersonalTeamName, IsPersonal: true})
		if err != nil {
			return fmt.Errorf("error creating personal team: %v", err)
		}
		if err := teamRepo.AddMember(ctx, &models.TeamMember{
			TeamID: team.ID, UserID: user.ID, Role: models.RoleAdmin,
		}); err != nil {
			return fmt.Errorf("error adding personal team member: %v", err)
		}
		if err := teamRepo.CreateKeyAccess(ctx, &models.TeamKeyAccess{
			TeamID: team.ID, UserID: user.ID, EncryptedTeamKey: wrappedKey, Nonce: wrapNonce,
		}); err != nil {
			return fmt.Errorf("error creating personal key access: %v", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return user, nil
}

// GetSalt returns the user's stored salt or, for an unknown email, a fake
// salt derived deterministically from the email. The fake must be stable:
// a salt that changed between calls would itself reveal that the account
// does not exist.
func (s *UserService) GetSalt(ctx context.Context, email string) ([]byte, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.getFakeSalt(email), nil
		}
		return nil, common.ErrorInternal
	}
	return user.Salt, nil
}

// Login verifies the password against the stored verifier in constant time
// and, on success, returns a new TokenPair along with the private-key
// envelope. Unknown email and wrong password are indistinguishable: both
// yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email string, password []byte) (*TokenPair, *cryptox.PrivateKeyEnvelope, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, common.ErrorInternal
	}

	candidate, err := cryptox.MakeVerifier(password, user.Salt)
	if err != nil {
		return nil, nil, common.ErrInvalidCredentials
	}
	if !s.checkVerifier(user.Verifier, candidate) {
		return nil, nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, nil, err
	}
	env := &cryptox.PrivateKeyEnvelope{
		Ciphertext: user.EncryptedPrivateKey,
		Nonce:      user.PrivateKeyNonce,
		Salt:       user.Salt,
	}
	return pair, env, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Unknown tokens yield ErrInvalidToken, expired
// ones ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %v", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// ChangePassword rewraps the private-key envelope under the new password and
// stores a matching verifier in a single UPDATE. The keypair itself and every
// team-key wrap stay valid; a wrong old password yields
// common.ErrInvalidCredentials and leaves the account untouched.
func (s *UserService) ChangePassword(ctx context.Context, userID string, oldPassword, newPassword []byte) error {
	if len(newPassword) == 0 {
		return common.ErrWeakInput
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	env := &cryptox.PrivateKeyEnvelope{
		Ciphertext: user.EncryptedPrivateKey,
		Nonce:      user.PrivateKeyNonce,
		Salt:       user.Salt,
	}
	newEnv, err := cryptox.RewrapIdentity(oldPassword, newPassword, env)
	if err != nil {
		return err
	}
	verifier, err := cryptox.MakeVerifier(newPassword, newEnv.Salt)
	if err != nil {
		return err
	}

	user.Salt = newEnv.Salt
	user.Verifier = verifier
	user.EncryptedPrivateKey = newEnv.Ciphertext
	user.PrivateKeyNonce = newEnv.Nonce

	if err := repo.UpdateEnvelope(ctx, user); err != nil {
		return fmt.Errorf("error updating envelope: %v", err)
	}
	return nil
}

// UnlockPrivateKey loads the caller's envelope and opens it with the given
// password. Handlers use this for operations that need the private key for
// team-key unwrapping. The caller must wipe the returned key after use.
func (s *UserService) UnlockPrivateKey(ctx context.Context, userID string, password []byte) ([]byte, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	env := &cryptox.PrivateKeyEnvelope{
		Ciphertext: user.EncryptedPrivateKey,
		Nonce:      user.PrivateKeyNonce,
		Salt:       user.Salt,
	}
	return cryptox.UnlockIdentity(password, env)
}

// --- helpers below ---

// getFakeSalt maps an email to a stable salt-sized value, keyed with the
// server secret so the mapping cannot be precomputed offline.
func (s *UserService) getFakeSalt(email string) []byte {
	mac := hmac.New(sha256.New, s.jwtSecret)
	mac.Write([]byte(email))
	return mac.Sum(nil)[:cryptox.SaltSize]
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) checkVerifier(verifier []byte, candidate []byte) bool {
	return subtle.ConstantTimeCompare(verifier, candidate) == 1
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
