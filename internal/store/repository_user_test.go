package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

func newTestUserRepo(t *testing.T) (*userRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &userRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func pgError(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func userRows(u models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_code", "username", "email", "password_hash",
		"role_id", "name", "redirect_path", "email_verified", "signup_state",
		"failed_login_attempts", "account_locked", "locked_until",
		"last_login", "login_count", "created_at",
	}).AddRow(
		u.UserID, u.UserCode, u.Username, u.Email, u.PasswordHash,
		u.RoleID, u.RoleName, u.RedirectPath, u.EmailVerified, string(u.SignupState),
		u.FailedLoginAttempts, u.AccountLocked, u.LockedUntil,
		u.LastLogin, u.LoginCount, u.CreatedAt,
	)
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	ctx := context.Background()
	user := models.User{
		UserCode:     "480213",
		Username:     "alice01",
		Email:        "a@x.com",
		PasswordHash: "$2a$10$hash",
		RoleName:     "unverified",
		SignupState:  models.SignupCreated,
		CreatedAt:    time.Now(),
	}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(user.UserCode, user.Username, user.Email, user.PasswordHash,
			user.RoleName, string(user.SignupState), user.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	created, err := repo.CreateUser(ctx, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.UserID != 1 {
		t.Errorf("expected UserID=1, got %d", created.UserID)
	}
	if created.Username != user.Username {
		t.Errorf("expected username %s, got %s", user.Username, created.Username)
	}
}

func TestCreateUser_UniqueViolations(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"users_username_key", ErrUsernameAlreadyExists},
		{"users_email_key", ErrEmailAlreadyExists},
		{"users_user_code_key", ErrUserCodeAlreadyExists},
	}

	for _, tc := range cases {
		repo, mock, db := newTestUserRepo(t)

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(pgError(pgerrcode.UniqueViolation, tc.constraint))

		_, err := repo.CreateUser(context.Background(), models.User{Username: "alice01"})
		if !errors.Is(err, tc.want) {
			t.Errorf("constraint %s: expected %v, got %v", tc.constraint, tc.want, err)
		}
		db.Close()
	}
}

// The sqlite3 driver reports no constraint name; the colliding column only
// appears in the error text, "UNIQUE constraint failed: table.column".
func sqliteUniqueError(column string) error {
	err := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	return fmt.Errorf("UNIQUE constraint failed: %s: %w", column, err)
}

func TestCreateUser_UniqueViolationsSQLite(t *testing.T) {
	cases := []struct {
		column string
		want   error
	}{
		{"users.username", ErrUsernameAlreadyExists},
		{"users.email", ErrEmailAlreadyExists},
		{"users.user_code", ErrUserCodeAlreadyExists},
	}

	for _, tc := range cases {
		repo, mock, db := newTestUserRepo(t)

		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(sqliteUniqueError(tc.column))

		_, err := repo.CreateUser(context.Background(), models.User{Username: "alice01"})
		if !errors.Is(err, tc.want) {
			t.Errorf("column %s: expected %v, got %v", tc.column, tc.want, err)
		}
		db.Close()
	}
}

func TestCreateUser_UnexpectedDBError(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(errors.New("db network error"))

	_, err := repo.CreateUser(context.Background(), models.User{Username: "alice01"})
	if err == nil || !strings.Contains(err.Error(), "unexpected DB error") {
		t.Fatalf("expected wrapped unexpected DB error, got %v", err)
	}
}

func TestFindByUsername_Success(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	until := time.Now().Add(10 * time.Minute)
	want := models.User{
		UserID:        7,
		UserCode:      "123456",
		Username:      "john_doe",
		Email:         "j@x.com",
		PasswordHash:  "$2a$10$hash",
		RoleID:        2,
		RoleName:      "cashier",
		RedirectPath:  "/pos/till",
		SignupState:   models.SignupComplete,
		AccountLocked: true,
		LockedUntil:   &until,
		CreatedAt:     time.Now(),
	}

	mock.ExpectQuery("FROM users u").
		WithArgs("john_doe").
		WillReturnRows(userRows(want))

	got, err := repo.FindByUsername(context.Background(), "john_doe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != want.UserID || got.RoleName != "cashier" {
		t.Errorf("unexpected user: %+v", got)
	}
	if got.LockedUntil == nil || !got.LockedUntil.Equal(until) {
		t.Errorf("expected LockedUntil=%v, got %v", until, got.LockedUntil)
	}
}

func TestFindByUsername_NotFound(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectQuery("FROM users u").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, ErrNoUserWasFound) {
		t.Fatalf("expected ErrNoUserWasFound, got %v", err)
	}
}

func TestRecordLoginFailure_ThresholdReached(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	until := time.Now().Add(30 * time.Minute)
	mock.ExpectQuery("UPDATE users").
		WithArgs(5, until, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts", "account_locked"}).AddRow(5, true))

	attempts, locked, err := repo.RecordLoginFailure(context.Background(), 7, 5, until)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 5 || !locked {
		t.Errorf("expected attempts=5 locked=true, got attempts=%d locked=%v", attempts, locked)
	}
}

func TestRecordLoginFailure_BelowThreshold(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	until := time.Now().Add(30 * time.Minute)
	mock.ExpectQuery("UPDATE users").
		WithArgs(5, until, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts", "account_locked"}).AddRow(2, false))

	attempts, locked, err := repo.RecordLoginFailure(context.Background(), 7, 5, until)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 || locked {
		t.Errorf("expected attempts=2 locked=false, got attempts=%d locked=%v", attempts, locked)
	}
}

func TestRecordLoginSuccess(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec("UPDATE users").
		WithArgs(at, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RecordLoginSuccess(context.Background(), 7, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdvanceSignupState_Conflict(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs(string(models.SignupOTPVerified), int64(7), string(models.SignupCreated)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AdvanceSignupState(context.Background(), 7, models.SignupCreated, models.SignupOTPVerified)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestCompleteSignup_GuardedOnOTPVerified(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs(string(models.SignupComplete), int64(7), string(models.SignupOTPVerified)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CompleteSignup(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnlock_NoSuchUser(t *testing.T) {
	repo, mock, db := newTestUserRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Unlock(context.Background(), 99)
	if !errors.Is(err, ErrNoUserWasFound) {
		t.Fatalf("expected ErrNoUserWasFound, got %v", err)
	}
}
