package credentials

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"teamvault/internal/common"
	"teamvault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+credentials\b.*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`).
		WithArgs("t1", "prod db", "db.internal", "app", models.KindPassword, []byte("ct"), []byte("nonce")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("c1", now, now))

	cred, err := repo.Create(context.Background(), &models.Credential{
		TeamID: "t1", Title: "prod db", Hostname: "db.internal", Username: "app",
		Kind: models.KindPassword, EncryptedSecret: []byte("ct"), Nonce: []byte("nonce"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.ID != "c1" {
		t.Fatalf("expected id c1, got %q", cred.ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*\s+FROM\s+credentials\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestListByTeam_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "team_id", "title", "hostname", "username", "kind",
		"encrypted_secret", "nonce", "created_at", "updated_at",
	}).
		AddRow("c1", "t1", "prod db", "db.internal", "app", "password", []byte("ct1"), []byte("n1"), now, now).
		AddRow("c2", "t1", "deploy key", "", "git", "ssh_key", []byte("ct2"), []byte("n2"), now, now)

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*\s+FROM\s+credentials\s+WHERE\s+team_id\s*=\s*\$1\b`).
		WithArgs("t1").
		WillReturnRows(rows)

	list, err := repo.ListByTeam(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[1].Kind != models.KindSSHKey {
		t.Fatalf("unexpected result: %+v", list)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*UPDATE\s+credentials\s+SET\s+title\b`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Credential{
		ID: "missing", Title: "x", Kind: models.KindPassword,
		EncryptedSecret: []byte("ct"), Nonce: []byte("n"),
	})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestUpdateCiphertext_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*UPDATE\s+credentials\s+SET\s+encrypted_secret\b`).
		WithArgs("c1", []byte("ct2"), []byte("n2")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateCiphertext(context.Background(), "c1", []byte("ct2"), []byte("n2")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*DELETE\s+FROM\s+credentials\b`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
