package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "login_throttle:"

// RedisCounter keeps counts in Redis so every auth-service replica sees the same limits
type RedisCounter struct {
	client redis.Cmdable
}

// NewRedisCounter creates a counter on an existing client
func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

// NewRedisClient opens a client from a redis:// URL
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Count returns the count stored for key
func (c *RedisCounter) Count(ctx context.Context, key string) (int, error) {
	count, err := c.client.Get(ctx, c.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read throttle counter: %w", err)
	}
	return count, nil
}

// Increment runs INCR and sets the expiry only when the key has none
func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, c.key(key))
		pipe.ExpireNX(ctx, c.key(key), window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment throttle counter: %w", err)
	}
	return int(incr.Val()), nil
}

// Reset deletes key
func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset throttle counter: %w", err)
	}
	return nil
}

func (c *RedisCounter) key(key string) string {
	return redisKeyPrefix + key
}

// HealthCheck pings the Redis server
func (c *RedisCounter) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
