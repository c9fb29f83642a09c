// SPDX-License-Identifier: Apache-2.0

// Package session manages the server-side session records behind the opaque
// browser cookie. Records live in a Store keyed by session id; the cookie
// value is the id wrapped in a signed JWT so a tampered cookie dies before
// any store read.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

// ErrSessionNotFound is returned for an unknown or expired session id.
var ErrSessionNotFound = errors.New("session not found")

// Store is the backing key/value layer for session records.
type Store interface {
	Get(ctx context.Context, sid string) (*models.SessionData, error)
	Set(ctx context.Context, sid string, data *models.SessionData, ttl time.Duration) error
	Delete(ctx context.Context, sid string) error
}

// Manager is the session lifecycle used by the HTTP layer.
type Manager interface {
	// Create stores data under a freshly generated session id.
	Create(ctx context.Context, data *models.SessionData) (string, error)

	// Get loads the record for sid.
	Get(ctx context.Context, sid string) (*models.SessionData, error)

	// Save rewrites the record for sid, refreshing its TTL.
	Save(ctx context.Context, sid string, data *models.SessionData) error

	// Rotate moves data under a new id and deletes the old record.
	// Called on every privilege change to prevent session fixation.
	Rotate(ctx context.Context, oldSID string, data *models.SessionData) (string, error)

	// Destroy removes the record for sid.
	Destroy(ctx context.Context, sid string) error
}

// manager is the Store-backed [Manager].
type manager struct {
	store  Store
	ttl    time.Duration
	logger *logger.Logger
}

// NewManager constructs a [Manager] over the given store with the configured
// record lifetime.
func NewManager(store Store, ttl time.Duration, logger *logger.Logger) Manager {
	return &manager{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func (m *manager) Create(ctx context.Context, data *models.SessionData) (string, error) {
	sid, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("session id generation: %w", err)
	}
	if err := m.store.Set(ctx, sid, data, m.ttl); err != nil {
		return "", fmt.Errorf("session store write: %w", err)
	}
	return sid, nil
}

func (m *manager) Get(ctx context.Context, sid string) (*models.SessionData, error) {
	return m.store.Get(ctx, sid)
}

func (m *manager) Save(ctx context.Context, sid string, data *models.SessionData) error {
	return m.store.Set(ctx, sid, data, m.ttl)
}

func (m *manager) Rotate(ctx context.Context, oldSID string, data *models.SessionData) (string, error) {
	log := logger.FromContext(ctx)

	sid, err := m.Create(ctx, data)
	if err != nil {
		return "", err
	}
	if oldSID != "" {
		// Best effort: a lingering old record expires on its own TTL.
		if err := m.store.Delete(ctx, oldSID); err != nil {
			log.Err(err).Str("func", "*manager.Rotate").Msg("error: stale session delete failed")
		}
	}
	return sid, nil
}

func (m *manager) Destroy(ctx context.Context, sid string) error {
	return m.store.Delete(ctx, sid)
}

// newSessionID draws a time-ordered UUID. Unguessability comes from the
// signed cookie wrapper, ordering helps store-side debugging.
func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
