package httpserver

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/holy_coop/backend/internal/app"
)

const healthTimeout = 2 * time.Second

type dependencyCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// healthHandler reports "degraded" when Redis is unreachable or the lineup is
// empty. It always answers 200 so load balancers can read the body.
func healthHandler(container *app.Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		status := "ok"
		checks := fiber.Map{}
		if container.Redis != nil {
			start := time.Now()
			check := dependencyCheck{Status: "ok"}
			if err := container.Redis.Ping(ctx).Err(); err != nil {
				check = dependencyCheck{Status: "error", Error: err.Error()}
				status = "degraded"
			}
			check.LatencyMS = time.Since(start).Milliseconds()
			checks["redis"] = check
		}

		configured := len(container.Engine.Providers())
		checks["providers"] = fiber.Map{"configured": configured}
		if configured == 0 {
			status = "degraded"
		}

		body := fiber.Map{"status": status, "checks": checks}
		if container.HealthMon != nil {
			body["providers"] = container.HealthMon.Snapshot()
		}
		return c.JSON(body)
	}
}
