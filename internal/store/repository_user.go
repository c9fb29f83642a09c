package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

// userRepository is the SQL-backed implementation of [UserRepository].
// It handles account creation, lookup, and the atomic counter and lock
// mutations against the "users" table.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
//
// A debug-level log message is emitted at construction time to aid
// application startup diagnostics.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// CreateUser persists a new account and returns the [models.User] with the
// server-assigned UserID populated. The role is resolved by name so callers
// never handle role ids at signup.
//
// Error handling:
//   - unique_violation (23505) → one of the AlreadyExists sentinels,
//     selected by the violated constraint.
//   - Any other driver-level error → wrapped as "unexpected DB error".
func (r *userRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	row := r.db.QueryRowContext(ctx, createUser,
		user.UserCode, user.Username, user.Email, user.PasswordHash,
		user.RoleName, string(user.SignupState), user.CreatedAt)

	if err := row.Scan(&user.UserID); err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: user insert failed")

		if target := uniqueViolationTarget(err); target != nil {
			return models.User{}, target
		}
		r.db.warnIfRetryable(ctx, err)
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	return user, nil
}

// FindByUsername retrieves the account whose username matches exactly.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, findUserByUsername, username)
}

// FindByEmail retrieves the account whose email matches exactly.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, findUserByEmail, email)
}

// FindByUserCode retrieves the account whose short staff code matches.
func (r *userRepository) FindByUserCode(ctx context.Context, code string) (models.User, error) {
	return r.findOne(ctx, findUserByCode, code)
}

// FindByID retrieves the account by its internal identifier.
func (r *userRepository) FindByID(ctx context.Context, userID int64) (models.User, error) {
	return r.findOne(ctx, findUserByID, userID)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (models.User, error) {
	log := logger.FromContext(ctx)

	var u models.User
	var lockedUntil, lastLogin sql.NullTime

	row := r.db.QueryRowContext(ctx, query, arg)
	err := row.Scan(&u.UserID, &u.UserCode, &u.Username, &u.Email, &u.PasswordHash,
		&u.RoleID, &u.RoleName, &u.RedirectPath, &u.EmailVerified, &u.SignupState,
		&u.FailedLoginAttempts, &u.AccountLocked, &lockedUntil,
		&lastLogin, &u.LoginCount, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).Str("func", "*userRepository.findOne").Msg("error: user lookup failed")
		r.db.warnIfRetryable(ctx, err)
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	if lockedUntil.Valid {
		u.LockedUntil = &lockedUntil.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}

	return u, nil
}

// RecordLoginFailure increments the failure counter and applies the lock in
// one statement. The returned values reflect the row after the increment.
func (r *userRepository) RecordLoginFailure(ctx context.Context, userID int64, threshold int, lockedUntil time.Time) (int, bool, error) {
	log := logger.FromContext(ctx)

	var attempts int
	var locked bool
	row := r.db.QueryRowContext(ctx, recordLoginFailure, threshold, lockedUntil, userID)
	if err := row.Scan(&attempts, &locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrNoUserWasFound
		}
		log.Err(err).Str("func", "*userRepository.RecordLoginFailure").Msg("error: failure counter update failed")
		r.db.warnIfRetryable(ctx, err)
		return 0, false, fmt.Errorf("unexpected DB error: %w", err)
	}

	return attempts, locked, nil
}

// RecordLoginSuccess clears the failure state and stamps the login in one
// statement.
func (r *userRepository) RecordLoginSuccess(ctx context.Context, userID int64, at time.Time) error {
	return r.execExpectingRow(ctx, "*userRepository.RecordLoginSuccess", recordLoginSuccess, at, userID)
}

// Unlock clears the lock and failure counter.
func (r *userRepository) Unlock(ctx context.Context, userID int64) error {
	return r.execExpectingRow(ctx, "*userRepository.Unlock", unlockUser, userID)
}

// AdvanceSignupState performs a guarded pipeline transition. The WHERE clause
// carries the expected current state; zero affected rows means the stored
// state moved underneath the caller.
func (r *userRepository) AdvanceSignupState(ctx context.Context, userID int64, from, to models.SignupState) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, advanceSignupState, string(to), userID, string(from))
	if err != nil {
		log.Err(err).Str("func", "*userRepository.AdvanceSignupState").Msg("error: state transition failed")
		r.db.warnIfRetryable(ctx, err)
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}

	return nil
}

// CompleteSignup marks the account verified and the pipeline finished,
// guarded on the otp_verified stage.
func (r *userRepository) CompleteSignup(ctx context.Context, userID int64) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, completeSignup,
		string(models.SignupComplete), userID, string(models.SignupOTPVerified))
	if err != nil {
		log.Err(err).Str("func", "*userRepository.CompleteSignup").Msg("error: completion update failed")
		r.db.warnIfRetryable(ctx, err)
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}

	return nil
}

// MarkEmailVerified flips email_verified for the mailed verification link.
func (r *userRepository) MarkEmailVerified(ctx context.Context, userID int64) error {
	return r.execExpectingRow(ctx, "*userRepository.MarkEmailVerified", markEmailVerified, userID)
}

func (r *userRepository) execExpectingRow(ctx context.Context, fn, query string, args ...any) error {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", fn).Msg("error: update failed")
		r.db.warnIfRetryable(ctx, err)
		return fmt.Errorf("unexpected DB error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unexpected DB error: %w", err)
	}
	if affected == 0 {
		return ErrNoUserWasFound
	}

	return nil
}
