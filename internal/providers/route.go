package providers

import (
	"context"
	"errors"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

var errNoComposer = errors.New("route has no image composer")

// Route binds a configured lineup entry to the adapter serving it.
type Route struct {
	Settings models.ProviderConfig
	Image    ImageComposer
	Health   func(ctx context.Context) error
}

// Config returns the static lineup entry.
func (r Route) Config() models.ProviderConfig {
	return r.Settings
}

// Attempt forwards the payload to the adapter.
func (r Route) Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error) {
	if r.Image == nil {
		return models.ImageOutcome{}, models.NewProviderError(r.Settings.ID, models.ErrorProviderRejected, 0, errNoComposer.Error(), errNoComposer)
	}
	return r.Image.Attempt(ctx, payload)
}

// HealthCheck probes the adapter when it exposes a health function.
func (r Route) HealthCheck(ctx context.Context) error {
	if r.Health == nil {
		return nil
	}
	return r.Health(ctx)
}

var (
	_ Provider      = Route{}
	_ HealthChecker = Route{}
)
