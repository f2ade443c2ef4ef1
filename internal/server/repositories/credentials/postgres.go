// Package credentials provides the PostgreSQL-backed repository for stored
// secrets. Secrets are persisted as ciphertext only.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamvault/internal/common"
	"teamvault/internal/dbx"
	"teamvault/internal/server/models"
)

// PostgresRepository implements credential storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (team_id, title, hostname, username, kind, encrypted_secret, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		cred.TeamID, cred.Title, cred.Hostname, cred.Username, cred.Kind,
		cred.EncryptedSecret, cred.Nonce).Scan(&cred.ID, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Credential, error) {
	query := `
		SELECT id, team_id, title, hostname, username, kind, encrypted_secret, nonce, created_at, updated_at
		FROM credentials
		WHERE id = $1
	`
	cred := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cred.ID, &cred.TeamID, &cred.Title, &cred.Hostname, &cred.Username,
		&cred.Kind, &cred.EncryptedSecret, &cred.Nonce, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Credential, error) {
	query := `
		SELECT id, team_id, title, hostname, username, kind, encrypted_secret, nonce, created_at, updated_at
		FROM credentials
		WHERE team_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Credential
	for rows.Next() {
		cred := &models.Credential{}
		if err := rows.Scan(
			&cred.ID, &cred.TeamID, &cred.Title, &cred.Hostname, &cred.Username,
			&cred.Kind, &cred.EncryptedSecret, &cred.Nonce, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, cred *models.Credential) error {
	query := `
		UPDATE credentials
		SET title = $2, hostname = $3, username = $4, kind = $5,
		    encrypted_secret = $6, nonce = $7, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		cred.ID, cred.Title, cred.Hostname, cred.Username, cred.Kind,
		cred.EncryptedSecret, cred.Nonce)
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

func (r *PostgresRepository) UpdateCiphertext(ctx context.Context, id string, encryptedSecret, nonce []byte) error {
	query := `
		UPDATE credentials
		SET encrypted_secret = $2, nonce = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, encryptedSecret, nonce)
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM credentials
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
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
