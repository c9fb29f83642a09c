package models

import "time"

// User represents an account entity used for authentication and authorization.
// It contains identity attributes, credential data, and the counters that
// drive progressive lockout. Sensitive fields must never be exposed outside
// trusted boundaries.
type User struct {
	// UserID is the internal unique identifier of the user.
	// It is not exposed via JSON and is used only at the persistence layer.
	UserID int64 `json:"-"`

	// UserCode is the short human-facing numeric identifier (3-6 digits)
	// printed on staff badges. Accepted as a login identifier.
	UserCode string `json:"user_code"`

	// Username is the unique login name: 3-50 characters, [A-Za-z0-9_]+.
	Username string `json:"username"`

	// Email is the unique, verified contact address of the account.
	Email string `json:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This value MUST be a derived value, never plaintext.
	PasswordHash string `json:"-"`

	// RoleID references the role assigned to the account.
	RoleID int64 `json:"role_id"`

	// RoleName is the resolved name of the assigned role (joined on read).
	RoleName string `json:"role_name"`

	// RedirectPath is the role's configured post-login destination
	// (joined on read). May be empty; callers must apply a safe fallback.
	RedirectPath string `json:"-"`

	// EmailVerified reports whether the registration pipeline completed.
	EmailVerified bool `json:"email_verified"`

	// SignupState is the explicit registration pipeline stage.
	SignupState SignupState `json:"-"`

	// FailedLoginAttempts counts consecutive failed password checks.
	// Reset to zero on any successful login and at account creation.
	FailedLoginAttempts int `json:"-"`

	// AccountLocked reports whether password checking is suspended.
	// When set, LockedUntil holds the lock expiry.
	AccountLocked bool `json:"-"`

	// LockedUntil is the moment the lock expires. Nil when unlocked.
	LockedUntil *time.Time `json:"-"`

	// LastLogin is the timestamp of the most recent successful login.
	LastLogin *time.Time `json:"last_login,omitempty"`

	// LoginCount is the lifetime number of successful logins.
	LoginCount int `json:"login_count"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}

// LockedAt reports whether the account is locked at the given moment.
// A lock with a nil LockedUntil is permanent until manually cleared.
func (u User) LockedAt(now time.Time) bool {
	if !u.AccountLocked {
		return false
	}
	if u.LockedUntil == nil {
		return true
	}
	return now.Before(*u.LockedUntil)
}

// SignupState is the explicit stage of the three-step registration pipeline.
type SignupState string

const (
	// SignupCreated is the entry state: the account row exists, the first
	// OTP and the email verification link have been issued.
	SignupCreated SignupState = "created"

	// SignupOTPVerified means the initial OTP was accepted and the final
	// OTP has been issued for the completion step.
	SignupOTPVerified SignupState = "otp_verified"

	// SignupComplete means the pipeline finished and the account is live.
	SignupComplete SignupState = "complete"
)

// CanAdvanceTo reports whether moving from s to next is a legal, strictly
// forward transition. Skipping stages is never allowed.
func (s SignupState) CanAdvanceTo(next SignupState) bool {
	switch s {
	case SignupCreated:
		return next == SignupOTPVerified
	case SignupOTPVerified:
		return next == SignupComplete
	default:
		return false
	}
}
