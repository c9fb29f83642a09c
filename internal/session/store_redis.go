// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

const redisKeyPrefix = "session:"

// redisStore keeps session records in redis as JSON documents with a
// per-record TTL. Expiry is enforced by redis itself.
type redisStore struct {
	client *redis.Client
	logger *logger.Logger
}

// NewRedisClient connects to redis per cfg, verifying the connection with a
// PING. The caller owns the client; the health endpoint pings it too.
func NewRedisClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}
	return client, nil
}

// NewRedisStore returns a [Store] over an established client.
func NewRedisStore(client *redis.Client, logger *logger.Logger) Store {
	return &redisStore{client: client, logger: logger}
}

func (s *redisStore) Get(ctx context.Context, sid string) (*models.SessionData, error) {
	log := logger.FromContext(ctx)

	raw, err := s.client.Get(ctx, redisKeyPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		log.Err(err).Str("func", "*redisStore.Get").Msg("error: redis read failed")
		return nil, fmt.Errorf("session read: %w", err)
	}

	var data models.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		// An undecodable record is as good as gone.
		log.Err(err).Str("func", "*redisStore.Get").Msg("error: corrupt session record")
		return nil, ErrSessionNotFound
	}
	return &data, nil
}

func (s *redisStore) Set(ctx context.Context, sid string, data *models.SessionData, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sid, raw, ttl).Err(); err != nil {
		return fmt.Errorf("session write: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
