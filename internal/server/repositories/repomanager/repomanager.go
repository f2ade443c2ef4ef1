package repomanager

import (
	"context"
	"database/sql"

	"teamvault/internal/dbx"
	"teamvault/internal/server/repositories/attachments"
	"teamvault/internal/server/repositories/credentials"
	"teamvault/internal/server/repositories/invites"
	"teamvault/internal/server/repositories/refreshtokens"
	"teamvault/internal/server/repositories/teams"
	"teamvault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can run
// several repositories inside one transaction by passing the same *sql.Tx to
// each factory.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Teams(db dbx.DBTX) teams.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Invites(db dbx.DBTX) invites.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Attachments(db dbx.DBTX) attachments.Repository
}
