// Package attachments provides the PostgreSQL-backed repository for
// attachment metadata. The encrypted blobs themselves live in object storage.
package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"teamvault/internal/common"
	"teamvault/internal/dbx"
	"teamvault/internal/server/models"
)

// PostgresRepository implements attachment metadata storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, att *models.Attachment) (*models.Attachment, error) {
	query := `
		INSERT INTO attachments (credential_id, storage_key, encrypted_file_key, nonce, upload_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		att.CredentialID, att.StorageKey, att.EncryptedFileKey, att.Nonce, att.UploadStatus).Scan(&att.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return att, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Attachment, error) {
	query := `
		SELECT id, credential_id, storage_key, encrypted_file_key, nonce, upload_status, created_at
		FROM attachments
		WHERE id = $1
	`
	att := &models.Attachment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&att.ID, &att.CredentialID, &att.StorageKey, &att.EncryptedFileKey,
		&att.Nonce, &att.UploadStatus, &att.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return att, nil
}

func (r *PostgresRepository) ListByCredential(ctx context.Context, credentialID string) ([]*models.Attachment, error) {
	query := `
		SELECT id, credential_id, storage_key, encrypted_file_key, nonce, upload_status, created_at
		FROM attachments
		WHERE credential_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, credentialID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Attachment
	for rows.Next() {
		att := &models.Attachment{}
		if err := rows.Scan(
			&att.ID, &att.CredentialID, &att.StorageKey, &att.EncryptedFileKey,
			&att.Nonce, &att.UploadStatus, &att.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	query := `
		UPDATE attachments
		SET upload_status = 'uploaded'
		WHERE id = $1 AND upload_status = 'pending'
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

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM attachments
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
