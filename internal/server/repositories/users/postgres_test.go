package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"

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

func sampleUser() *models.User {
	return &models.User{
		Email:               "alice@example.com",
		Name:                "Alice",
		Salt:                []byte("salt"),
		Verifier:            []byte("verifier"),
		PublicKey:           []byte("pub"),
		EncryptedPrivateKey: []byte("encpriv"),
		PrivateKeyNonce:     []byte("nonce"),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := sampleUser()
	q := `(?s)^\s*INSERT\s+INTO\s+users\b.*RETURNING\s+id\s*$`
	mock.ExpectQuery(q).
		WithArgs(u.Email, u.Name, u.Salt, u.Verifier, u.PublicKey, u.EncryptedPrivateKey, u.PrivateKeyNonce).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))

	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("expected id u1, got %q", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+users\b`).
		WillReturnError(errors.New("db down"))

	if _, err := repo.Create(context.Background(), sampleUser()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "email", "name", "password_salt", "verifier",
		"public_key", "encrypted_private_key", "private_key_nonce",
	}).AddRow("u1", "alice@example.com", "Alice",
		[]byte("salt"), []byte("verifier"), []byte("pub"), []byte("encpriv"), []byte("nonce"))

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	u, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || u.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*\s+FROM\s+users\b`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestUpdateEnvelope_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := sampleUser()
	u.ID = "u1"
	mock.ExpectExec(`(?s)^\s*UPDATE\s+users\s+SET\b`).
		WithArgs(u.ID, u.Salt, u.Verifier, u.EncryptedPrivateKey, u.PrivateKeyNonce).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateEnvelope(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateEnvelope_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := sampleUser()
	u.ID = "missing"
	mock.ExpectExec(`(?s)^\s*UPDATE\s+users\s+SET\b`).
		WithArgs(u.ID, u.Salt, u.Verifier, u.EncryptedPrivateKey, u.PrivateKeyNonce).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateEnvelope(context.Background(), u); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
