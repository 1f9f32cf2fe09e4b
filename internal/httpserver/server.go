package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/ncecere/holy_coop/backend/internal/app"
	"github.com/ncecere/holy_coop/backend/internal/config"
	publicroutes "github.com/ncecere/holy_coop/backend/internal/httpserver/public"
)

const (
	defaultBodyLimitMB     = 8
	defaultShutdownTimeout = 5 * time.Second
)

// Server serves the composition API on top of a Fiber app.
type Server struct {
	app    *fiber.App
	server config.ServerConfig
}

// New builds the Fiber app and registers every route.
func New(container *app.Container) (*Server, error) {
	if container == nil || container.Config == nil {
		return nil, errors.New("httpserver: container with config is required")
	}
	settings := container.Config.Server

	limitMB := settings.BodyLimitMB
	if limitMB <= 0 {
		limitMB = defaultBodyLimitMB
	}
	fapp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ServerHeader:          "holy-coop-composer",
		BodyLimit:             limitMB << 20,
		ReadTimeout:           settings.RequestTimeout,
		WriteTimeout:          settings.RequestTimeout,
		IdleTimeout:           settings.IdleTimeout,
		ProxyHeader:           settings.ProxyHeader,
	})

	fapp.Use(
		requestid.New(requestid.Config{Generator: uuid.NewString}),
		logger.New(),
		recover.New(),
	)
	if obs := container.Observability; obs != nil {
		fapp.Use(metricsMiddleware(obs))
		if obs.TracerProvider() != nil {
			fapp.Use(tracingMiddleware())
		}
		if handler := obs.PrometheusHandler(); handler != nil {
			fapp.Get("/metrics", adaptor.HTTPHandler(handler))
		}
	}

	fapp.Get("/healthz", healthHandler(container))
	publicroutes.Register(fapp, container)

	return &Server{app: fapp, server: settings}, nil
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.server.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace := s.server.GracefulShutdownDelay
	if grace <= 0 {
		grace = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
