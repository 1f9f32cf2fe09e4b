package public

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ncecere/holy_coop/backend/internal/app"
	"github.com/ncecere/holy_coop/backend/internal/health"
	"github.com/ncecere/holy_coop/backend/internal/models"
)

type catalogHandler struct {
	container *app.Container
}

func (h *catalogHandler) options(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"attire": models.AttireOptions(),
		"styles": models.StyleOptions(),
	})
}

type providerView struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind"`
	Model          string            `json:"model"`
	Priority       int               `json:"priority"`
	Capability     models.Capability `json:"capability"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	CostPerImage   decimal.Decimal   `json:"cost_per_image"`
	Healthy        *bool             `json:"healthy,omitempty"`
	HealthError    string            `json:"health_error,omitempty"`
	CheckedAt      *time.Time        `json:"checked_at,omitempty"`
}

// providers lists the lineup in fallback order with the last probe result.
func (h *catalogHandler) providers(c *fiber.Ctx) error {
	statuses := make(map[string]health.Status)
	if h.container.HealthMon != nil {
		for _, st := range h.container.HealthMon.Snapshot() {
			statuses[st.Provider] = st
		}
	}
	lineup := h.container.Engine.Providers()
	views := make([]providerView, 0, len(lineup))
	for _, p := range lineup {
		cfg := p.Config()
		view := providerView{
			ID:             cfg.ID,
			Kind:           cfg.Kind,
			Model:          cfg.Model,
			Priority:       cfg.Priority,
			Capability:     cfg.Capability,
			TimeoutSeconds: cfg.TimeoutSeconds,
			CostPerImage:   cfg.CostPerImage,
		}
		if st, ok := statuses[cfg.ID]; ok {
			healthy, checked := st.Healthy, st.CheckedAt
			view.Healthy = &healthy
			view.HealthError = st.Error
			view.CheckedAt = &checked
		}
		views = append(views, view)
	}
	return c.JSON(fiber.Map{"data": views})
}
