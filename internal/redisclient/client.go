// Package redisclient opens the optional Redis connection shared by the
// rate limiter and the idempotency cache.
package redisclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

const pingTimeout = 3 * time.Second

// Open connects to Redis and verifies the connection. It returns a nil client
// and no error when no URL is configured.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		// bare host:port or unix socket path
		opts = &redis.Options{Addr: url}
		if strings.HasPrefix(url, "/") {
			opts.Network = "unix"
		}
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(opts)
	client.AddHook(skipMaintNotifications{})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// skipMaintNotifications drops the CLIENT MAINT_NOTIFICATIONS handshake that
// servers without the command (and miniredis) reject.
type skipMaintNotifications struct{}

func isMaintNotifications(cmd redis.Cmder) bool {
	args := cmd.Args()
	if len(args) < 2 || !strings.EqualFold(cmd.FullName(), "client") {
		return false
	}
	sub, ok := args[1].(string)
	return ok && strings.EqualFold(sub, "maint_notifications")
}

func (skipMaintNotifications) DialHook(next redis.DialHook) redis.DialHook { return next }

func (skipMaintNotifications) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if isMaintNotifications(cmd) {
			return nil
		}
		return next(ctx, cmd)
	}
}

func (skipMaintNotifications) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		kept := cmds[:0]
		for _, cmd := range cmds {
			if !isMaintNotifications(cmd) {
				kept = append(kept, cmd)
			}
		}
		return next(ctx, kept)
	}
}
