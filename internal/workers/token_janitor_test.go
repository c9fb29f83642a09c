// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/mock"
)

func TestTokenJanitor_SweepPurgesWithRetentionCutoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mock.NewMockTokenRepository(ctrl)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	j := NewTokenJanitor(tokens, logger.Nop())
	j.now = func() time.Time { return now }

	tokens.EXPECT().
		PurgeExpired(gomock.Any(), now.Add(-purgeRetention)).
		Return(int64(3), nil)

	j.sweep()
}

func TestTokenJanitor_RunStopsOnStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mock.NewMockTokenRepository(ctrl)

	j := NewTokenJanitor(tokens, logger.Nop())
	j.interval = time.Hour // never fires during the test

	done := make(chan struct{})
	go func() {
		j.Run()
		close(done)
	}()

	j.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestWorkers_RunAndStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := mock.NewMockTokenRepository(ctrl)

	j := NewTokenJanitor(tokens, logger.Nop())
	ws := NewWorkers(j)

	ws.Run()
	ws.Stop()

	// Stop must leave the janitor's loop exited; a second Run of the
	// aggregate would panic on the closed channel, so just assert the
	// stop channel is closed.
	select {
	case <-j.stop:
	case <-time.After(time.Second):
		t.Fatal("stop was not signalled")
	}

	require.NotNil(t, ws)
	assert.Len(t, ws.workers, 1)
}
