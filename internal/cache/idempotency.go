package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyCache replays finished composition responses keyed by a
// digest of the client, its Idempotency-Key header and the submitted form.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &IdempotencyCache{client: client, ttl: ttl}
}

// Enabled reports whether a backing store is configured.
func (c *IdempotencyCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() || key == "" {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte) error {
	if !c.Enabled() || key == "" || len(value) == 0 {
		return nil
	}
	return c.client.Set(ctx, c.prefixed(key), value, c.ttl).Err()
}

func (c *IdempotencyCache) prefixed(key string) string {
	return "composer:idem:" + key
}
