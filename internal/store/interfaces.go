package store

import (
	"context"
	"time"

	"github.com/tillpoint/accounts/models"
)

// UserRepository is the data-access layer for account records. All counter
// and lock mutations are single atomic statements so concurrent requests for
// the same account cannot interleave a read-modify-write.
type UserRepository interface {
	// CreateUser persists a new account and returns it with server-assigned
	// fields populated (UserID, CreatedAt).
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// FindByUsername, FindByEmail, and FindByUserCode each run exactly one
	// lookup query. Callers pick one based on identifier classification;
	// there is no fallback cascading.
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUserCode(ctx context.Context, code string) (models.User, error)

	// FindByID retrieves an account by its internal identifier.
	FindByID(ctx context.Context, userID int64) (models.User, error)

	// RecordLoginFailure atomically increments the failure counter and,
	// when the incremented value reaches threshold, locks the account
	// until lockedUntil. Returns the post-increment counter and lock flag.
	RecordLoginFailure(ctx context.Context, userID int64, threshold int, lockedUntil time.Time) (attempts int, locked bool, err error)

	// RecordLoginSuccess resets the failure counter, clears any lock,
	// stamps last_login, and increments login_count in one statement.
	RecordLoginSuccess(ctx context.Context, userID int64, at time.Time) error

	// Unlock clears the lock and failure counter. Used for expired-lock
	// auto-unlock and for admin unlock.
	Unlock(ctx context.Context, userID int64) error

	// AdvanceSignupState moves the pipeline state from the expected
	// current stage to next. Returns ErrStateConflict when the stored
	// state does not match from (stale navigation or a concurrent call).
	AdvanceSignupState(ctx context.Context, userID int64, from, to models.SignupState) error

	// CompleteSignup marks the account verified and the pipeline complete,
	// guarded on the otp_verified stage.
	CompleteSignup(ctx context.Context, userID int64) error

	// MarkEmailVerified flips email_verified without touching the
	// pipeline state. Used by the mailed verification link.
	MarkEmailVerified(ctx context.Context, userID int64) error
}

// TokenRepository persists single-use verification tokens and one-time
// codes. Consumption is a single conditional statement: the winning call is
// the only one that observes the row.
type TokenRepository interface {
	// CreateToken supersedes any unconsumed token for the same
	// (user, purpose) pair and inserts the new one. Only the hash of the
	// token value is stored.
	CreateToken(ctx context.Context, token models.VerificationToken) (models.VerificationToken, error)

	// LookupToken reports the user bound to a live token without
	// consuming it. Returns ErrTokenInvalid for every kind of mismatch.
	LookupToken(ctx context.Context, tokenValue string, purpose models.TokenPurpose, now time.Time) (int64, error)

	// ConsumeToken atomically consumes the unconsumed, unexpired token
	// matching the presented value and purpose. Returns the bound user id
	// or ErrTokenInvalid for every kind of mismatch.
	ConsumeToken(ctx context.Context, tokenValue string, purpose models.TokenPurpose, now time.Time) (int64, error)

	// ResetPassword consumes the matching reset token and installs the
	// new password hash for the bound user in one transaction. Both
	// writes commit together or not at all; every token mismatch comes
	// back as ErrTokenInvalid.
	ResetPassword(ctx context.Context, tokenValue string, purpose models.TokenPurpose, passwordHash string, now time.Time) (int64, error)

	// CreateOTP supersedes any unconsumed code for the user and inserts
	// the new one.
	CreateOTP(ctx context.Context, otp models.OneTimeCode) (models.OneTimeCode, error)

	// ConsumeOTP atomically consumes the user's unconsumed, unexpired
	// code if it matches exactly. Returns ErrTokenInvalid otherwise.
	ConsumeOTP(ctx context.Context, userID int64, code string, now time.Time) error

	// PurgeExpired deletes token and code rows expired before cutoff and
	// reports how many were reclaimed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// AttemptRepository is the append-only attempt ledger. Rows are never
// mutated or deleted by this service.
type AttemptRepository interface {
	// Insert appends one attempt row.
	Insert(ctx context.Context, attempt models.Attempt) error

	// CountSince counts rows for the scope and source IP with a timestamp
	// at or after since. Used by the sliding-window rate limiter.
	CountSince(ctx context.Context, scope models.AttemptScope, ip string, since time.Time) (int, error)

	// ListRecent returns up to limit rows matching the optional scope and
	// ip filters, newest first. Used by the admin investigation endpoint.
	ListRecent(ctx context.Context, scope models.AttemptScope, ip string, since time.Time, limit uint64) ([]models.Attempt, error)
}

// Repositories bundles all persistence interfaces handed to the service
// layer.
type Repositories struct {
	Users    UserRepository
	Tokens   TokenRepository
	Attempts AttemptRepository
}

// NewRepositories wires all repositories to the given database connection.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Users:    NewUserRepository(db, db.logger),
		Tokens:   NewTokenRepository(db, db.logger),
		Attempts: NewAttemptRepository(db, db.logger),
	}
}
