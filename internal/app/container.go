package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/holy_coop/backend/internal/cache"
	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/events"
	"github.com/ncecere/holy_coop/backend/internal/guardrails"
	"github.com/ncecere/holy_coop/backend/internal/health"
	"github.com/ncecere/holy_coop/backend/internal/limits"
	"github.com/ncecere/holy_coop/backend/internal/observability"
	"github.com/ncecere/holy_coop/backend/internal/orchestrator"
	"github.com/ncecere/holy_coop/backend/internal/providers"
	"github.com/ncecere/holy_coop/backend/internal/router"
	"github.com/ncecere/holy_coop/backend/internal/storage/blob"
)

// Container aggregates runtime dependencies for handlers and commands.
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	Redis         *redis.Client
	Factory       *providers.Factory
	Engine        *router.Engine
	Orchestrator  *orchestrator.Orchestrator
	RateLimiter   *limits.RateLimiter
	Idempotency   *cache.IdempotencyCache
	HealthMon     *health.Monitor
	Observability *observability.Provider
	Exports       blob.Store
	Events        events.Sink

	now      func() time.Time
	eventsWG sync.WaitGroup
}

// NewContainer builds a dependency container. redisClient may be nil, in
// which case idempotency replay and rate limiting are disabled.
func NewContainer(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := slog.Default()

	obsProvider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	factory := providers.NewFactory(cfg)
	engine := router.NewEngine()
	if err := engine.Reload(ctx, factory, cfg.Providers); err != nil {
		return nil, fmt.Errorf("init provider lineup: %w", err)
	}

	orchOpts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if obsProvider != nil {
		orchOpts = append(orchOpts, orchestrator.WithMetrics(obsProvider))
	}
	if cfg.Guardrails.Enabled {
		orchOpts = append(orchOpts, orchestrator.WithGuard(guardrails.NewEvaluator(guardrails.FromSettings(cfg.Guardrails))))
	}
	orch := orchestrator.New(cfg.Orchestrator, orchOpts...)

	var exports blob.Store
	if cfg.Exports.Enabled {
		exports, err = blob.New(ctx, cfg.Exports)
		if err != nil {
			return nil, fmt.Errorf("init export store: %w", err)
		}
	}

	var limiter *limits.RateLimiter
	if cfg.RateLimits.Enabled {
		limiter = limits.NewRateLimiter(redisClient, limits.FromSettings(cfg.RateLimits))
	}
	idem := cache.NewIdempotencyCache(redisClient, cfg.Server.IdempotencyTTL)

	var monitor *health.Monitor
	if cfg.Health.Enabled {
		monitor = health.NewMonitor(cfg.Health, logger)
		monitor.Start(ctx, engine.Providers)
	}

	var logSink events.Sink
	if cfg.Events.LogEvents {
		logSink = events.NewLogSink(logger)
	}
	sink := events.NewCompositeSink(
		logSink,
		events.NewWebhookSink(cfg.Events.Webhooks, cfg.Events.Webhook, logger),
	)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Redis:         redisClient,
		Factory:       factory,
		Engine:        engine,
		Orchestrator:  orch,
		RateLimiter:   limiter,
		Idempotency:   idem,
		HealthMon:     monitor,
		Observability: obsProvider,
		Exports:       exports,
		Events:        sink,
	}, nil
}

// ReloadProviders rebuilds the lineup from the configured provider entries.
func (c *Container) ReloadProviders(ctx context.Context) error {
	factory := providers.NewFactory(c.Config)
	if err := c.Engine.Reload(ctx, factory, c.Config.Providers); err != nil {
		return err
	}
	c.Factory = factory
	return nil
}

// Close waits for in-flight event deliveries and flushes telemetry.
func (c *Container) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.eventsWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return c.Observability.Shutdown(ctx)
}

func (c *Container) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Container) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
