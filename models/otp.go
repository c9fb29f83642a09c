package models

import "time"

// OTPLength is the exact number of digits in a one-time code.
const OTPLength = 6

// OneTimeCode is a 6-digit numeric code used to prove control of an email
// inbox during registration. At most one unconsumed code per user is
// authoritative; issuing a new one supersedes the previous.
//
// The code is compared as a string so leading zeros stay significant.
type OneTimeCode struct {
	// ID is the internal identifier of the code row.
	ID int64 `json:"-"`

	// UserID is the account the code was issued for.
	UserID int64 `json:"-"`

	// Code is the 6-digit numeric value. Never logged.
	Code string `json:"-"`

	// CreatedAt is the issue timestamp.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is CreatedAt plus the configured OTP TTL (10 minutes).
	ExpiresAt time.Time `json:"expires_at"`

	// Consumed is set exactly once, by the winning verification.
	Consumed bool `json:"-"`
}

// TableName returns the name of the database table
// associated with the OneTimeCode model.
func (c OneTimeCode) TableName() string {
	return "otp_codes"
}
