// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/models"
)

// safePathPattern is the allow-list for role-configured redirect targets.
// Anything outside it falls back to the default destination.
var safePathPattern = regexp.MustCompile(`^[A-Za-z0-9/._-]+$`)

// authService is the concrete implementation of [AuthService].
//
// Login rejections for unknown accounts and wrong passwords share one
// message, and the ledger receives exactly one row for every request that
// reaches the credential stage.
type authService struct {
	users    store.UserRepository
	attempts store.AttemptRepository
	limiter  RateLimiter

	lockoutThreshold int
	lockoutDuration  time.Duration
	defaultRedirect  string

	now    func() time.Time
	logger *logger.Logger
}

// NewAuthService constructs an [AuthService] with the lockout parameters
// taken from sec and the fallback redirect from app.
//
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewAuthService(users store.UserRepository, attempts store.AttemptRepository, limiter RateLimiter,
	sec config.Security, app config.App, logger *logger.Logger) AuthService {
	return &authService{
		users:            users,
		attempts:         attempts,
		limiter:          limiter,
		lockoutThreshold: sec.LockoutThreshold,
		lockoutDuration:  sec.LockoutDuration,
		defaultRedirect:  app.DefaultRedirect,
		now:              time.Now,
		logger:           logger,
	}
}

// Login implements the credential check described on [AuthService].
func (a *authService) Login(ctx context.Context, identifier, password string, meta models.RequestMeta) (models.Outcome, error) {
	log := logger.FromContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return models.Rejected{Reason: MsgInvalidCredentials, Severity: models.SeverityDanger}, nil
	}

	allowed, err := a.limiter.Allow(ctx, models.ScopeLogin, meta.IP)
	if err != nil {
		return nil, err
	}
	if !allowed {
		// The block is derived from existing ledger rows; it is not
		// itself recorded.
		return models.Rejected{Reason: MsgTooManyAttempts, Severity: models.SeverityWarning}, nil
	}

	kind := ClassifyIdentifier(identifier)

	var user models.User
	switch kind {
	case models.KindEmail:
		user, err = a.users.FindByEmail(ctx, identifier)
	case models.KindUserCode:
		user, err = a.users.FindByUserCode(ctx, identifier)
	default:
		user, err = a.users.FindByUsername(ctx, identifier)
	}

	now := a.now()
	if errors.Is(err, store.ErrNoUserWasFound) {
		a.record(ctx, models.ScopeLogin, identifier, kind, meta, false)
		return models.Rejected{Reason: MsgInvalidCredentials, Severity: models.SeverityDanger}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	if user.LockedAt(now) {
		// Password is not compared and counters stay untouched while
		// the lock holds.
		a.record(ctx, models.ScopeLogin, identifier, kind, meta, false)
		return models.Rejected{Reason: MsgAccountLocked, Severity: models.SeverityDanger}, nil
	}
	if user.AccountLocked {
		// Lock expired: unlock and fall through to the password check
		// within this same request.
		if err := a.users.Unlock(ctx, user.UserID); err != nil {
			return nil, fmt.Errorf("auto unlock: %w", err)
		}
		user.AccountLocked = false
		user.FailedLoginAttempts = 0
	}

	if !CheckPassword(user.PasswordHash, password) {
		_, locked, ferr := a.users.RecordLoginFailure(ctx, user.UserID, a.lockoutThreshold, now.Add(a.lockoutDuration))
		if ferr != nil {
			log.Err(ferr).Str("func", "*authService.Login").Msg("error: failure counter update failed")
		}
		a.record(ctx, models.ScopeLogin, identifier, kind, meta, false)

		if locked {
			return models.Rejected{Reason: MsgAccountLocked, Severity: models.SeverityDanger}, nil
		}
		return models.Rejected{Reason: MsgInvalidCredentials, Severity: models.SeverityDanger}, nil
	}

	if user.SignupState != models.SignupComplete {
		// Correct password on a half-registered account resumes the
		// pipeline instead of opening a session.
		a.record(ctx, models.ScopeLogin, identifier, kind, meta, true)
		return models.NeedsInput{
			Stage: user.SignupState,
			PreAuth: &models.PreAuthState{
				TempUserID:  user.UserID,
				TempEmail:   user.Email,
				OTPVerified: user.SignupState == models.SignupOTPVerified,
			},
		}, nil
	}

	if err := a.users.RecordLoginSuccess(ctx, user.UserID, now); err != nil {
		return nil, fmt.Errorf("success bookkeeping: %w", err)
	}
	a.record(ctx, models.ScopeLogin, identifier, kind, meta, true)

	log.Info().Int64("user_id", user.UserID).Str("role", user.RoleName).Msg("login succeeded")

	return models.Success{
		Redirect: SafeRedirect(user.RedirectPath, a.defaultRedirect),
		Session: &models.SessionData{
			UserID:       user.UserID,
			Username:     user.Username,
			RoleID:       user.RoleID,
			RoleName:     user.RoleName,
			LoginSuccess: true,
			LoginTime:    now,
			LastActivity: now,
			IPAddress:    meta.IP,
			UserAgent:    meta.UserAgent,
		},
	}, nil
}

// Logout implements the teardown guard described on [AuthService].
func (a *authService) Logout(session *models.SessionData) models.Outcome {
	if session == nil {
		return models.Success{Redirect: "/login"}
	}
	if session.TillOpen {
		return models.Rejected{Reason: MsgTillOpen, Severity: models.SeverityWarning}
	}
	if session.POSOperator {
		return models.Rejected{Reason: MsgPOSOperator, Severity: models.SeverityWarning}
	}
	return models.Success{Redirect: "/login", Notice: MsgSignedOut, Severity: models.SeverityInfo}
}

// record appends the single ledger row for a credential-stage request.
// Ledger failures are logged and swallowed: the attempt outcome already
// stands and the ledger is an audit trail, not a gate.
func (a *authService) record(ctx context.Context, scope models.AttemptScope, identifier string,
	kind models.IdentifierKind, meta models.RequestMeta, success bool) {
	err := a.attempts.Insert(ctx, models.Attempt{
		Identifier: identifier,
		Scope:      scope,
		Kind:       kind,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Success:    success,
		CreatedAt:  a.now(),
	})
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*authService.record").Msg("error: attempt ledger insert failed")
	}
}

// SafeRedirect returns the role-configured path when it passes the safe-path
// pattern and is absolute; otherwise the fallback.
func SafeRedirect(path, fallback string) string {
	if path == "" || !strings.HasPrefix(path, "/") || !safePathPattern.MatchString(path) {
		return fallback
	}
	return path
}
