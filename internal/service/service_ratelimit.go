// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/models"
)

// limitPolicy is one per-IP ceiling: at most Max ledger rows inside the
// trailing Window.
type limitPolicy struct {
	Window time.Duration
	Max    int
}

// rateLimiter evaluates the per-IP ceilings against the attempt ledger.
// Order is check-then-record: the decision is read from rows already in the
// ledger, so a rejected request never inflates its own count.
type rateLimiter struct {
	attempts store.AttemptRepository
	policies map[models.AttemptScope]limitPolicy
	now      func() time.Time
	logger   *logger.Logger
}

// NewRateLimiter constructs a [RateLimiter] with the per-scope policies
// taken from cfg.
func NewRateLimiter(attempts store.AttemptRepository, cfg config.Security, logger *logger.Logger) RateLimiter {
	return &rateLimiter{
		attempts: attempts,
		policies: map[models.AttemptScope]limitPolicy{
			models.ScopeLogin:         {Window: cfg.LoginWindow, Max: cfg.LoginMax},
			models.ScopeSignup:        {Window: cfg.SignupWindow, Max: cfg.SignupMax},
			models.ScopePasswordReset: {Window: cfg.ResetWindow, Max: cfg.ResetMax},
		},
		now:    time.Now,
		logger: logger,
	}
}

// Allow reports whether one more attempt from ip is permitted for scope.
// Unknown scopes are allowed; the ceilings exist for the three interactive
// flows only.
func (l *rateLimiter) Allow(ctx context.Context, scope models.AttemptScope, ip string) (bool, error) {
	log := logger.FromContext(ctx)

	policy, ok := l.policies[scope]
	if !ok {
		return true, nil
	}

	since := l.now().Add(-policy.Window)
	count, err := l.attempts.CountSince(ctx, scope, ip, since)
	if err != nil {
		log.Err(err).Str("func", "*rateLimiter.Allow").Str("scope", string(scope)).Msg("error: window count failed")
		return false, fmt.Errorf("rate limit check: %w", err)
	}

	return count < policy.Max, nil
}
