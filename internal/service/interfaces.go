// SPDX-License-Identifier: Apache-2.0

// Package service implements the account-security operations: rate limiting,
// single-use token and code lifecycle, login, the registration pipeline,
// password reset, and the admin unlock surface.
//
// Operations return a [models.Outcome] for everything a user can cause and a
// non-nil error only for infrastructure failures the presentation layer
// downgrades to a generic message.
package service

import (
	"context"
	"time"

	"github.com/tillpoint/accounts/models"
)

// RateLimiter answers whether one more attempt from ip is allowed for the
// scope, counting ledger rows in the scope's trailing window.
type RateLimiter interface {
	Allow(ctx context.Context, scope models.AttemptScope, ip string) (bool, error)
}

// TokenService owns the single-use credential lifecycle: opaque verification
// tokens bound to a purpose, and 6-digit one-time codes. Issue always
// supersedes the prior live credential of the same kind.
type TokenService interface {
	Issue(ctx context.Context, userID int64, purpose models.TokenPurpose) (models.VerificationToken, error)

	// Check validates a token without consuming it; only Redeem and
	// RedeemForPasswordChange burn one.
	Check(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error)
	Redeem(ctx context.Context, tokenValue string, purpose models.TokenPurpose) (int64, error)

	// RedeemForPasswordChange consumes a password-reset token and
	// installs the new hash for the bound user in one repository
	// transaction.
	RedeemForPasswordChange(ctx context.Context, tokenValue, passwordHash string) (int64, error)

	IssueOTP(ctx context.Context, userID int64) (models.OneTimeCode, error)
	VerifyOTP(ctx context.Context, userID int64, code string) error
}

// AuthService authenticates till and back-office staff and guards logout.
type AuthService interface {
	// Login runs the full credential check for one request: rate limit,
	// identifier classification, lockout gate, password compare, and on
	// success the session payload with the role-resolved redirect.
	Login(ctx context.Context, identifier, password string, meta models.RequestMeta) (models.Outcome, error)

	// Logout evaluates the teardown guard against the live session. It
	// never touches storage; destroying the record is the caller's job
	// and only permitted on a [models.Success] outcome.
	Logout(session *models.SessionData) models.Outcome
}

// RegistrationInput is the signup form payload.
type RegistrationInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// RegistrationService drives the three-stage signup pipeline.
type RegistrationService interface {
	Register(ctx context.Context, input RegistrationInput, meta models.RequestMeta) (models.Outcome, error)
	VerifyOTP(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error)
	Complete(ctx context.Context, pre models.PreAuthState, code string, meta models.RequestMeta) (models.Outcome, error)
	ResendOTP(ctx context.Context, pre models.PreAuthState) (models.Outcome, error)

	// VerifyEmailLink redeems the mailed email-confirmation token.
	VerifyEmailLink(ctx context.Context, tokenValue string) (models.Outcome, error)
}

// PasswordResetService owns both halves of the reset flow.
type PasswordResetService interface {
	Request(ctx context.Context, email string, meta models.RequestMeta) (models.Outcome, error)
	Redeem(ctx context.Context, tokenValue, newPassword, confirmPassword string) (models.Outcome, error)
}

// AdminService is the back-office surface for lockout investigations.
type AdminService interface {
	UnlockUser(ctx context.Context, userID int64) error
	ListAttempts(ctx context.Context, scope models.AttemptScope, ip string, since time.Time, limit uint64) ([]models.Attempt, error)
}
