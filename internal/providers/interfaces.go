package providers

import (
	"context"

	"github.com/ncecere/holy_coop/backend/internal/models"
)

// ImageComposer is implemented by adapters that turn a payload into an image outcome.
type ImageComposer interface {
	Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error)
}

// Provider is one strategy in the fallback lineup.
type Provider interface {
	Config() models.ProviderConfig
	Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error)
}

// HealthChecker is implemented by providers that can be probed out of band.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
