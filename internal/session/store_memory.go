// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync"
	"time"

	"github.com/tillpoint/accounts/models"
)

// memoryStore is an in-process [Store] for development setups without redis.
// Records are copied on the way in and out so callers cannot mutate stored
// state through a retained pointer.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	data      models.SessionData
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-memory [Store].
func NewMemoryStore() Store {
	return &memoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (s *memoryStore) Get(_ context.Context, sid string) (*models.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[sid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(rec.expiresAt) {
		delete(s.records, sid)
		return nil, ErrSessionNotFound
	}

	data := rec.data
	return &data, nil
}

func (s *memoryStore) Set(_ context.Context, sid string, data *models.SessionData, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[sid] = memoryRecord{
		data:      *data,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, sid)
	return nil
}
