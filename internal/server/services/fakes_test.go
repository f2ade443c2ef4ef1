package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"teamvault/internal/common"
	"teamvault/internal/dbx"
	"teamvault/internal/server/models"
	attachmentsrepo "teamvault/internal/server/repositories/attachments"
	credentialsrepo "teamvault/internal/server/repositories/credentials"
	invitesrepo "teamvault/internal/server/repositories/invites"
	refreshtokensrepo "teamvault/internal/server/repositories/refreshtokens"
	teamsrepo "teamvault/internal/server/repositories/teams"
	usersrepo "teamvault/internal/server/repositories/users"
)

// In-memory fakes shared by the service tests. They ignore the DBTX they are
// bound to; transactional behavior is asserted via sqlmock Begin/Commit/
// Rollback expectations on the *sql.DB the services hold.

type fakeUsersRepo struct {
	byID    map[string]*models.User
	nextID  int
	updated int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("duplicate email")
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("u%d", f.nextID)
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdateEnvelope(ctx context.Context, u *models.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return common.ErrorNotFound
	}
	f.byID[u.ID] = u
	f.updated++
	return nil
}

type memberKey struct{ teamID, userID string }

type fakeTeamsRepo struct {
	teams   map[string]*models.Team
	members map[memberKey]*models.TeamMember
	access  map[memberKey]*models.TeamKeyAccess
	nextID  int
	lockErr error
	locked  int
}

func newFakeTeamsRepo() *fakeTeamsRepo {
	return &fakeTeamsRepo{
		teams:   map[string]*models.Team{},
		members: map[memberKey]*models.TeamMember{},
		access:  map[memberKey]*models.TeamKeyAccess{},
	}
}

func (f *fakeTeamsRepo) Create(ctx context.Context, t *models.Team) (*models.Team, error) {
	f.nextID++
	t.ID = fmt.Sprintf("t%d", f.nextID)
	f.teams[t.ID] = t
	return t, nil
}

func (f *fakeTeamsRepo) Get(ctx context.Context, id string) (*models.Team, error) {
	if t, ok := f.teams[id]; ok {
		return t, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTeamsRepo) ListByUser(ctx context.Context, userID string) ([]*models.Team, error) {
	var result []*models.Team
	for key, m := range f.members {
		if m.UserID == userID {
			result = append(result, f.teams[key.teamID])
		}
	}
	return result, nil
}

func (f *fakeTeamsRepo) Lock(ctx context.Context, teamID string) error {
	if f.lockErr != nil {
		return f.lockErr
	}
	if _, ok := f.teams[teamID]; !ok {
		return common.ErrorNotFound
	}
	f.locked++
	return nil
}

func (f *fakeTeamsRepo) AddMember(ctx context.Context, m *models.TeamMember) error {
	f.members[memberKey{m.TeamID, m.UserID}] = m
	return nil
}

func (f *fakeTeamsRepo) RemoveMember(ctx context.Context, teamID, userID string) error {
	key := memberKey{teamID, userID}
	if _, ok := f.members[key]; !ok {
		return common.ErrorNotFound
	}
	delete(f.members, key)
	return nil
}

func (f *fakeTeamsRepo) GetMember(ctx context.Context, teamID, userID string) (*models.TeamMember, error) {
	if m, ok := f.members[memberKey{teamID, userID}]; ok {
		return m, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTeamsRepo) ListMembers(ctx context.Context, teamID string) ([]*models.TeamMember, error) {
	var result []*models.TeamMember
	for key, m := range f.members {
		if key.teamID == teamID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeTeamsRepo) CreateKeyAccess(ctx context.Context, a *models.TeamKeyAccess) error {
	f.access[memberKey{a.TeamID, a.UserID}] = a
	return nil
}

func (f *fakeTeamsRepo) GetKeyAccess(ctx context.Context, teamID, userID string) (*models.TeamKeyAccess, error) {
	if a, ok := f.access[memberKey{teamID, userID}]; ok {
		return a, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTeamsRepo) DeleteKeyAccess(ctx context.Context, teamID, userID string) error {
	key := memberKey{teamID, userID}
	if _, ok := f.access[key]; !ok {
		return common.ErrorNotFound
	}
	delete(f.access, key)
	return nil
}

func (f *fakeTeamsRepo) ReplaceKeyAccess(ctx context.Context, a *models.TeamKeyAccess) error {
	key := memberKey{a.TeamID, a.UserID}
	if _, ok := f.access[key]; !ok {
		return common.ErrorNotFound
	}
	f.access[key] = a
	return nil
}

type fakeCredentialsRepo struct {
	byID   map[string]*models.Credential
	nextID int
}

func newFakeCredentialsRepo() *fakeCredentialsRepo {
	return &fakeCredentialsRepo{byID: map[string]*models.Credential{}}
}

func (f *fakeCredentialsRepo) Create(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	f.nextID++
	c.ID = fmt.Sprintf("c%d", f.nextID)
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCredentialsRepo) Get(ctx context.Context, id string) (*models.Credential, error) {
	if c, ok := f.byID[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCredentialsRepo) ListByTeam(ctx context.Context, teamID string) ([]*models.Credential, error) {
	var result []*models.Credential
	for _, c := range f.byID {
		if c.TeamID == teamID {
			clone := *c
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (f *fakeCredentialsRepo) Update(ctx context.Context, c *models.Credential) error {
	if _, ok := f.byID[c.ID]; !ok {
		return common.ErrorNotFound
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCredentialsRepo) UpdateCiphertext(ctx context.Context, id string, encryptedSecret, nonce []byte) error {
	c, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.EncryptedSecret = encryptedSecret
	c.Nonce = nonce
	return nil
}

func (f *fakeCredentialsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeInvitesRepo struct {
	codes map[string]bool // code -> used
}

func newFakeInvitesRepo() *fakeInvitesRepo {
	return &fakeInvitesRepo{codes: map[string]bool{}}
}

func (f *fakeInvitesRepo) Create(ctx context.Context, code string) (*models.InviteCode, error) {
	f.codes[code] = false
	return &models.InviteCode{ID: "i1", Code: code}, nil
}

func (f *fakeInvitesRepo) Consume(ctx context.Context, code string) error {
	used, ok := f.codes[code]
	if !ok || used {
		return common.ErrorNotFound
	}
	f.codes[code] = true
	return nil
}

type fakeRefreshTokensRepo struct {
	tokens map[string]*models.RefreshToken
}

func newFakeRefreshTokensRepo() *fakeRefreshTokensRepo {
	return &fakeRefreshTokensRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshTokensRepo) Create(ctx context.Context, userID, token string, validity time.Duration) error {
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshTokensRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRefreshTokensRepo) Delete(ctx context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

type fakeAttachmentsRepo struct {
	byID   map[string]*models.Attachment
	nextID int
}

func newFakeAttachmentsRepo() *fakeAttachmentsRepo {
	return &fakeAttachmentsRepo{byID: map[string]*models.Attachment{}}
}

func (f *fakeAttachmentsRepo) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	f.nextID++
	a.ID = fmt.Sprintf("a%d", f.nextID)
	f.byID[a.ID] = a
	return a, nil
}

func (f *fakeAttachmentsRepo) Get(ctx context.Context, id string) (*models.Attachment, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAttachmentsRepo) ListByCredential(ctx context.Context, credentialID string) ([]*models.Attachment, error) {
	var result []*models.Attachment
	for _, a := range f.byID {
		if a.CredentialID == credentialID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (f *fakeAttachmentsRepo) MarkUploaded(ctx context.Context, id string) error {
	a, ok := f.byID[id]
	if !ok || a.UploadStatus != "pending" {
		return common.ErrorNotFound
	}
	a.UploadStatus = "uploaded"
	return nil
}

func (f *fakeAttachmentsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRepoManager struct {
	users         *fakeUsersRepo
	teams         *fakeTeamsRepo
	credentials   *fakeCredentialsRepo
	invites       *fakeInvitesRepo
	refreshTokens *fakeRefreshTokensRepo
	attachments   *fakeAttachmentsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:         newFakeUsersRepo(),
		teams:         newFakeTeamsRepo(),
		credentials:   newFakeCredentialsRepo(),
		invites:       newFakeInvitesRepo(),
		refreshTokens: newFakeRefreshTokensRepo(),
		attachments:   newFakeAttachmentsRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.users }
func (m *fakeRepoManager) Teams(db dbx.DBTX) teamsrepo.Repository       { return m.teams }
func (m *fakeRepoManager) Credentials(db dbx.DBTX) credentialsrepo.Repository {
	return m.credentials
}
func (m *fakeRepoManager) Invites(db dbx.DBTX) invitesrepo.Repository { return m.invites }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.refreshTokens
}
func (m *fakeRepoManager) Attachments(db dbx.DBTX) attachmentsrepo.Repository {
	return m.attachments
}
