package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ncecere/holy_coop/backend/internal/app"
	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/httpserver"
	"github.com/ncecere/holy_coop/backend/internal/redisclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	redisClient, err := redisclient.Open(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		log.Printf("redis not configured; idempotency replay and rate limiting disabled")
	}

	container, err := app.NewContainer(ctx, cfg, redisClient)
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	log.Printf("composerd listening on %s with %d providers", cfg.Server.ListenAddr, len(container.Engine.Providers()))
	if err := server.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server stopped: %v", err)
	}
}
