// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"context"
	"time"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/store"
)

const (
	// sweepInterval is how often the janitor wakes up.
	sweepInterval = time.Hour

	// purgeRetention keeps expired rows around for a while so support
	// can still inspect a recently expired link.
	purgeRetention = 24 * time.Hour

	sweepTimeout = time.Minute
)

// TokenJanitor periodically deletes verification tokens and one-time codes
// whose expiry lies safely in the past. Redemption never returns them, so
// the sweep is pure storage hygiene.
type TokenJanitor struct {
	tokens   store.TokenRepository
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
	logger   *logger.Logger
}

// NewTokenJanitor constructs a janitor over the token repository.
func NewTokenJanitor(tokens store.TokenRepository, logger *logger.Logger) *TokenJanitor {
	return &TokenJanitor{
		tokens:   tokens,
		interval: sweepInterval,
		now:      time.Now,
		stop:     make(chan struct{}),
		logger:   logger,
	}
}

// Run sweeps on a fixed interval until Stop is called.
func (j *TokenJanitor) Run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stop:
			return
		}
	}
}

// Stop signals Run to return. Safe to call once.
func (j *TokenJanitor) Stop() {
	close(j.stop)
}

func (j *TokenJanitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	purged, err := j.tokens.PurgeExpired(ctx, j.now().Add(-purgeRetention))
	if err != nil {
		j.logger.Err(err).Str("func", "*TokenJanitor.sweep").Msg("error: token purge failed")
		return
	}
	if purged > 0 {
		j.logger.Info().Int64("purged", purged).Msg("expired credentials reclaimed")
	}
}
