// Package teams provides the PostgreSQL-backed repository for teams, their
// memberships, and the per-member wrapped copies of each team key.
package teams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamvault/internal/common"
	"teamvault/internal/dbx"
	"teamvault/internal/server/models"
)

// PostgresRepository implements team storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, team *models.Team) (*models.Team, error) {
	query := `
		INSERT INTO teams (name, is_personal)
		VALUES ($1, $2)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, team.Name, team.IsPersonal).Scan(&team.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return team, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Team, error) {
	query := `
		SELECT id, name, is_personal, created_at
		FROM teams
		WHERE id = $1
	`
	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.IsPersonal, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return team, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Team, error) {
	query := `
		SELECT t.id, t.name, t.is_personal, t.created_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Team
	for rows.Next() {
		team := &models.Team{}
		if err := rows.Scan(&team.ID, &team.Name, &team.IsPersonal, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Lock(ctx context.Context, teamID string) error {
	query := `
		SELECT id
		FROM teams
		WHERE id = $1
		FOR UPDATE
	`
	var id string
	if err := r.db.QueryRowContext(ctx, query, teamID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, member *models.TeamMember) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, member.TeamID, member.UserID, member.Role); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	query := `
		DELETE FROM team_members
		WHERE team_id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, teamID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetMember(ctx context.Context, teamID, userID string) (*models.TeamMember, error) {
	query := `
		SELECT team_id, user_id, role
		FROM team_members
		WHERE team_id = $1 AND user_id = $2
	`
	member := &models.TeamMember{}
	err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(&member.TeamID, &member.UserID, &member.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return member, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, teamID string) ([]*models.TeamMember, error) {
	query := `
		SELECT team_id, user_id, role
		FROM team_members
		WHERE team_id = $1
		ORDER BY user_id
	`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.TeamMember
	for rows.Next() {
		member := &models.TeamMember{}
		if err := rows.Scan(&member.TeamID, &member.UserID, &member.Role); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CreateKeyAccess(ctx context.Context, access *models.TeamKeyAccess) error {
	query := `
		INSERT INTO team_key_access (team_id, user_id, encrypted_team_key, nonce)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query,
		access.TeamID, access.UserID, access.EncryptedTeamKey, access.Nonce); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetKeyAccess(ctx context.Context, teamID, userID string) (*models.TeamKeyAccess, error) {
	query := `
		SELECT team_id, user_id, encrypted_team_key, nonce
		FROM team_key_access
		WHERE team_id = $1 AND user_id = $2
	`
	access := &models.TeamKeyAccess{}
	err := r.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&access.TeamID, &access.UserID, &access.EncryptedTeamKey, &access.Nonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return access, nil
}

func (r *PostgresRepository) DeleteKeyAccess(ctx context.Context, teamID, userID string) error {
	query := `
		DELETE FROM team_key_access
		WHERE team_id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, teamID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ReplaceKeyAccess(ctx context.Context, access *models.TeamKeyAccess) error {
	query := `
		UPDATE team_key_access
		SET encrypted_team_key = $3, nonce = $4
		WHERE team_id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		access.TeamID, access.UserID, access.EncryptedTeamKey, access.Nonce)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
