// Package session keeps login sessions in Redis. A session maps an opaque id to a
// user id and nothing else.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 24 * time.Hour

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// RedisStore stores sessions as plain string keys with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A non-positive ttl selects DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Create opens a session for userID and returns its id.
func (s *RedisStore) Create(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, sessionKey(id), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set failed: %w", err)
	}
	return id, nil
}

// Lookup returns the user behind the session and extends its lifetime.
func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (string, error) {
	userID, err := s.client.GetEx(ctx, sessionKey(sessionID), s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return userID, nil
}

// Delete ends the session.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
