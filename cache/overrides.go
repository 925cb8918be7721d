// Package cache provides read-only access to the per-user parameter
// override documents kept in Redis by the configuration subsystem.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnemo-ai/mnemo/helper"
)

// ErrNoOverride is returned when a user has no override document.
var ErrNoOverride = errors.New("no parameter overrides for user")

const overrideKeyPrefix = "user:params:"

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string

	// ConnectTimeout is the maximum time to wait for connection
	// establishment.
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations.
	ReadTimeout time.Duration
}

// RedisOverrides reads per-user override documents from Redis. This
// subsystem never writes to the cache.
type RedisOverrides struct {
	client *redis.Client
}

// NewRedisOverrides creates a Redis-backed override reader.
func NewRedisOverrides(opts Options) (*RedisOverrides, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 2 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, helper.NewError("parse redis url", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout

	return &RedisOverrides{client: redis.NewClient(redisOpts)}, nil
}

// Get returns the raw JSON override document for userID, or ErrNoOverride
// when none is stored.
func (r *RedisOverrides) Get(ctx context.Context, userID string) (string, error) {
	value, err := r.client.Get(ctx, overrideKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoOverride
	}
	if err != nil {
		return "", helper.NewError("read override cache", fmt.Errorf("user %v: %w", userID, err))
	}
	return value, nil
}

// Close closes the Redis connection.
func (r *RedisOverrides) Close() error {
	return r.client.Close()
}
