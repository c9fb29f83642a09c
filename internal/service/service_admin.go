// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/models"
)

// maxAttemptListing caps one admin ledger page.
const maxAttemptListing = 200

// adminService implements [AdminService]. Authorization is the transport
// layer's job; these methods assume an admin caller.
type adminService struct {
	users    store.UserRepository
	attempts store.AttemptRepository
	logger   *logger.Logger
}

// NewAdminService constructs an [AdminService].
func NewAdminService(users store.UserRepository, attempts store.AttemptRepository, logger *logger.Logger) AdminService {
	return &adminService{
		users:    users,
		attempts: attempts,
		logger:   logger,
	}
}

// UnlockUser clears the lock and the failure counter ahead of the lock
// window expiring.
func (s *adminService) UnlockUser(ctx context.Context, userID int64) error {
	log := logger.FromContext(ctx)

	if err := s.users.Unlock(ctx, userID); err != nil {
		return fmt.Errorf("admin unlock: %w", err)
	}

	log.Info().Int64("user_id", userID).Msg("account unlocked by admin")
	return nil
}

// ListAttempts returns recent ledger rows for lockout investigations,
// newest first. Zero-valued filters are omitted.
func (s *adminService) ListAttempts(ctx context.Context, scope models.AttemptScope, ip string, since time.Time, limit uint64) ([]models.Attempt, error) {
	if limit == 0 || limit > maxAttemptListing {
		limit = maxAttemptListing
	}

	attempts, err := s.attempts.ListRecent(ctx, scope, ip, since, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger listing: %w", err)
	}

	return attempts, nil
}
