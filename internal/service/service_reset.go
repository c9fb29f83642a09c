// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/mailer"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/models"
)

// passwordResetService implements [PasswordResetService].
//
// Request is enumeration-safe: known and unknown emails produce the same
// outcome value, and both append a ledger row.
type passwordResetService struct {
	users    store.UserRepository
	attempts store.AttemptRepository
	tokens   TokenService
	limiter  RateLimiter
	sender   mailer.Sender

	baseURL    string
	bcryptCost int

	now    func() time.Time
	logger *logger.Logger
}

// NewPasswordResetService constructs a [PasswordResetService].
func NewPasswordResetService(users store.UserRepository, attempts store.AttemptRepository,
	tokens TokenService, limiter RateLimiter, sender mailer.Sender,
	sec config.Security, app config.App, logger *logger.Logger) PasswordResetService {
	return &passwordResetService{
		users:      users,
		attempts:   attempts,
		tokens:     tokens,
		limiter:    limiter,
		sender:     sender,
		baseURL:    strings.TrimRight(app.BaseURL, "/"),
		bcryptCost: sec.BcryptCost,
		now:        time.Now,
		logger:     logger,
	}
}

// Request issues and mails a reset link when the email matches an account.
// Either way the caller receives the same confirmation text.
func (s *passwordResetService) Request(ctx context.Context, email string, meta models.RequestMeta) (models.Outcome, error) {
	log := logger.FromContext(ctx)

	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return models.Rejected{Reason: MsgEmailInvalid, Severity: models.SeverityDanger}, nil
	}

	allowed, err := s.limiter.Allow(ctx, models.ScopePasswordReset, meta.IP)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return models.Rejected{Reason: MsgTooManyAttempts, Severity: models.SeverityWarning}, nil
	}

	// The confirmation shown below must be byte-identical for both
	// branches; only the ledger success flag differs.
	confirmation := models.Success{Redirect: "/login", Notice: MsgResetConfirmation, Severity: models.SeverityInfo}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNoUserWasFound) {
		s.record(ctx, email, meta, false)
		return confirmation, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reset lookup: %w", err)
	}

	s.record(ctx, email, meta, true)

	token, err := s.tokens.Issue(ctx, user.UserID, models.PurposePasswordReset)
	if err != nil {
		return nil, fmt.Errorf("reset token issue: %w", err)
	}

	link := s.baseURL + "/reset/redeem?token=" + token.Token
	msg := mailer.ResetMessage(user.Username, link)
	if err := s.sender.Send(ctx, user.Email, msg.Subject, msg.Body); err != nil {
		// The unsent link is useless but confirming anyway keeps the
		// response indistinguishable from the unknown-email branch.
		log.Err(err).Int64("user_id", user.UserID).Msg("reset notification failed")
	}

	return confirmation, nil
}

// Redeem installs the new password bound to a valid token. The token is
// judged first: an invalid one short-circuits before any password input is
// considered, and a failed password check leaves the token live for a
// corrected resubmission. Once the checks pass, the consume and the hash
// install run as one repository transaction, so the token can never be
// burned with the password left unchanged.
func (s *passwordResetService) Redeem(ctx context.Context, tokenValue, newPassword, confirmPassword string) (models.Outcome, error) {
	log := logger.FromContext(ctx)

	if _, err := s.tokens.Check(ctx, tokenValue, models.PurposePasswordReset); err != nil {
		if errors.Is(err, store.ErrTokenInvalid) {
			return models.Rejected{Reason: MsgResetTokenInvalid, Severity: models.SeverityDanger}, nil
		}
		return nil, fmt.Errorf("reset token check: %w", err)
	}

	if !ValidResetPassword(newPassword) {
		return models.Rejected{Reason: MsgResetPolicy, Severity: models.SeverityDanger}, nil
	}
	if newPassword != confirmPassword {
		return models.Rejected{Reason: MsgPasswordMatch, Severity: models.SeverityDanger}, nil
	}

	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hash: %w", err)
	}

	// Consume and install commit together; the conditional consume also
	// decides the winner when the same link is submitted twice.
	userID, err := s.tokens.RedeemForPasswordChange(ctx, tokenValue, hash)
	if err != nil {
		if errors.Is(err, store.ErrTokenInvalid) {
			return models.Rejected{Reason: MsgResetTokenInvalid, Severity: models.SeverityDanger}, nil
		}
		return nil, fmt.Errorf("reset redeem: %w", err)
	}

	log.Info().Int64("user_id", userID).Msg("password reset completed")

	if user, lerr := s.users.FindByID(ctx, userID); lerr == nil {
		msg := mailer.PasswordChangedMessage(user.Username)
		if serr := s.sender.Send(ctx, user.Email, msg.Subject, msg.Body); serr != nil {
			log.Err(serr).Int64("user_id", userID).Msg("password-changed notification failed")
		}
	}

	return models.Success{Redirect: "/login", Notice: MsgPasswordChanged, Severity: models.SeveritySuccess}, nil
}

// record appends one reset-request ledger row; failures are logged and
// swallowed.
func (s *passwordResetService) record(ctx context.Context, email string, meta models.RequestMeta, matched bool) {
	err := s.attempts.Insert(ctx, models.Attempt{
		Identifier: email,
		Scope:      models.ScopePasswordReset,
		Kind:       models.KindEmail,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Success:    matched,
		CreatedAt:  s.now(),
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*passwordResetService.record").Msg("error: attempt ledger insert failed")
	}
}
