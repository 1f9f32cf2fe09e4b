package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

const slotTTL = 10 * time.Minute

type LimitConfig struct {
	RequestsPerMinute int
	ParallelRequests  int
}

// FromSettings converts the rate limit config section.
func FromSettings(cfg config.RateLimitConfig) LimitConfig {
	return LimitConfig{RequestsPerMinute: cfg.RequestsPerMinute, ParallelRequests: cfg.ParallelRequests}
}

// RateLimiter enforces per-client fixed-window and concurrency limits in Redis.
type RateLimiter struct {
	client *redis.Client
	cfg    LimitConfig
}

func NewRateLimiter(client *redis.Client, cfg LimitConfig) *RateLimiter {
	return &RateLimiter{client: client, cfg: cfg}
}

// Acquire admits one composition for key. The returned release func must be
// called when the composition finishes.
func (l *RateLimiter) Acquire(ctx context.Context, key string) (func(), error) {
	if err := l.Allow(ctx, key); err != nil {
		return func() {}, err
	}
	return func() { l.Release(context.WithoutCancel(ctx), key) }, nil
}

func (l *RateLimiter) Allow(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if l.cfg.RequestsPerMinute > 0 {
		if err := l.countCheck(ctx, fmt.Sprintf("rpm:%s", key), time.Minute, l.cfg.RequestsPerMinute); err != nil {
			return err
		}
	}
	if l.cfg.ParallelRequests > 0 {
		if err := l.semaphoreAcquire(ctx, fmt.Sprintf("sem:%s", key), l.cfg.ParallelRequests); err != nil {
			return err
		}
	}
	return nil
}

// releaseSlot frees one slot without driving the counter below zero. A slot
// whose key already expired leaves nothing behind.
var releaseSlot = redis.NewScript(`
local n = redis.call('DECR', KEYS[1])
if n <= 0 then
	redis.call('DEL', KEYS[1])
	return 0
end
redis.call('EXPIRE', KEYS[1], ARGV[1])
return n
`)

func (l *RateLimiter) Release(ctx context.Context, key string) {
	if l == nil || l.client == nil {
		return
	}
	if l.cfg.ParallelRequests > 0 {
		releaseSlot.Run(ctx, l.client, []string{fmt.Sprintf("sem:%s", key)}, int(slotTTL.Seconds()))
	}
}

func (l *RateLimiter) countCheck(ctx context.Context, key string, ttl time.Duration, limit int) error {
	window := time.Now().UTC().Unix() / int64(ttl.Seconds())
	redisKey := fmt.Sprintf("%s:%d", key, window)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, ttl)
	}
	if int(cnt) > limit {
		return ErrLimitExceeded
	}
	return nil
}

// Composition slots expire so a crashed request cannot hold one forever.
func (l *RateLimiter) semaphoreAcquire(ctx context.Context, key string, limit int) error {
	cnt, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, key, slotTTL)
	}
	if int(cnt) > limit {
		l.client.Decr(ctx, key)
		return ErrLimitExceeded
	}
	return nil
}
