package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mastery:session:"

// RedisBackend stores sessions as JSON values that expire with the session.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackendFromURL connects to redisURL and verifies the connection.
// PRE: redisURL is a redis:// or rediss:// URL
// POST: Returns a connected backend or an error
func NewRedisBackendFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("session_backend", "backend", "redis", "addr", opts.Addr)
	return NewRedisBackend(client, ttl), nil
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisBackend{client: client, ttl: ttl}
}

// Create stores rec under a fresh token with the session TTL.
func (b *RedisBackend) Create(ctx context.Context, rec Record) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := b.client.Set(ctx, keyPrefix+token, data, b.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Get loads the record for token. Redis expiry handles the TTL.
func (b *RedisBackend) Get(ctx context.Context, token string) (Record, bool, error) {
	data, err := b.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A record we cannot read is treated as absent.
		slog.Warn("session_corrupt", "error", err)
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Delete removes the record for token.
func (b *RedisBackend) Delete(ctx context.Context, token string) error {
	return b.client.Del(ctx, keyPrefix+token).Err()
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
