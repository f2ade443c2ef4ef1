// Package invites provides the PostgreSQL-backed repository for one-time
// registration invite codes.
package invites

import (
	"context"
	"fmt"

	"teamvault/internal/common"
	"teamvault/internal/dbx"
	"teamvault/internal/server/models"
)

// PostgresRepository implements invite code storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, code string) (*models.InviteCode, error) {
	query := `
		INSERT INTO invite_codes (code)
		VALUES ($1)
		RETURNING id
	`
	invite := &models.InviteCode{Code: code}
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&invite.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return invite, nil
}

// Consume flips is_used in a single statement so two concurrent signups
// cannot both spend the same code.
func (r *PostgresRepository) Consume(ctx context.Context, code string) error {
	query := `
		UPDATE invite_codes
		SET is_used = true
		WHERE code = $1 AND is_used = false
	`
	res, err := r.db.ExecContext(ctx, query, code)
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
