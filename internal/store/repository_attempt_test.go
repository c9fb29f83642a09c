package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

func newTestAttemptRepo(t *testing.T) (*attemptRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &attemptRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestAttemptInsert(t *testing.T) {
	repo, mock, db := newTestAttemptRepo(t)
	defer db.Close()

	now := time.Now()
	attempt := models.Attempt{
		Identifier: "john_doe",
		Scope:      models.ScopeLogin,
		Kind:       models.KindUsername,
		IP:         "203.0.113.9",
		UserAgent:  "till/1.0",
		Success:    false,
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO login_attempts").
		WithArgs("john_doe", string(models.ScopeLogin), string(models.KindUsername),
			"203.0.113.9", "till/1.0", false, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Insert(context.Background(), attempt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCountSince(t *testing.T) {
	repo, mock, db := newTestAttemptRepo(t)
	defer db.Close()

	since := time.Now().Add(-15 * time.Minute)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(string(models.ScopeLogin), "203.0.113.9", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountSince(context.Background(), models.ScopeLogin, "203.0.113.9", since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("expected count=4, got %d", count)
	}
}

func TestListRecent(t *testing.T) {
	repo, mock, db := newTestAttemptRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "identifier", "scope", "identifier_kind", "ip", "user_agent", "success", "created_at"}).
		AddRow(2, "a@x.com", "login", "email", "203.0.113.9", "till/1.0", true, now).
		AddRow(1, "john_doe", "login", "username", "203.0.113.9", "till/1.0", false, now.Add(-time.Minute))

	mock.ExpectQuery("SELECT id, identifier").
		WillReturnRows(rows)

	attempts, err := repo.ListRecent(context.Background(), models.ScopeLogin, "", time.Time{}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Kind != models.KindEmail || !attempts[0].Success {
		t.Errorf("unexpected first row: %+v", attempts[0])
	}
}
