// Package cache holds the small Redis helpers that are not the queue or
// the message bus: rate-limit counters and connectivity checks.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the counter interface used by the rate limiter.
// Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements Cache on a shared go-redis client.
type RedisCache struct {
	client *redis.Client
}

// New creates a RedisCache on an existing client.
func New(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
