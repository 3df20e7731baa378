package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultAccessTTL = 24 * time.Hour

// RedisAccessCache shares verified credentials between processes. Lookup
// failures count as "not verified" so a flaky cache only costs a request.
type RedisAccessCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAccessCache(ctx context.Context, addr string, ttl time.Duration) (*RedisAccessCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &RedisAccessCache{client: client, ttl: ttl}, nil
}

func (c *RedisAccessCache) Verified(ctx context.Context, key string) bool {
	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		slog.Warn("Access cache lookup failed", "key", key, "error", err)
		return false
	}
	return count > 0
}

func (c *RedisAccessCache) MarkVerified(ctx context.Context, key string) error {
	// SetNX keeps the first writer's TTL; later writers are no-ops.
	if err := c.client.SetNX(ctx, key, time.Now().Unix(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (c *RedisAccessCache) Close() error {
	return c.client.Close()
}
