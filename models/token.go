package models

import "time"

// TokenPurpose scopes a verification token to exactly one redemption flow.
type TokenPurpose string

const (
	// PurposeEmailVerify marks tokens mailed as account verification links.
	PurposeEmailVerify TokenPurpose = "email_verify"

	// PurposePasswordReset marks tokens mailed as password reset links.
	PurposePasswordReset TokenPurpose = "password_reset"
)

// VerificationToken is an opaque single-use credential bound to a user and a
// purpose. A token is valid iff it is unconsumed and unexpired; issuing a new
// token for the same (user, purpose) pair supersedes the prior one.
type VerificationToken struct {
	// ID is the internal identifier of the token row.
	ID int64 `json:"-"`

	// UserID is the account the token was issued for.
	UserID int64 `json:"-"`

	// Token is the URL-safe random value. At least 32 bytes of entropy,
	// base64url encoded. Never logged.
	Token string `json:"-"`

	// Purpose names the single flow the token may be redeemed in.
	Purpose TokenPurpose `json:"purpose"`

	// CreatedAt is the issue timestamp.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the moment the token stops being redeemable.
	// Expiry is checked lazily at redemption time.
	ExpiresAt time.Time `json:"expires_at"`

	// Consumed is set exactly once, by the winning redemption.
	Consumed bool `json:"-"`
}

// TableName returns the name of the database table
// associated with the VerificationToken model.
func (t VerificationToken) TableName() string {
	return "verification_tokens"
}
