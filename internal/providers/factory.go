package providers

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/models"
)

// Builder constructs a provider Route for a lineup entry.
type Builder func(ctx context.Context, cfg *config.Config, entry config.ProviderEntry) (Route, error)

// Factory builds provider routes from configuration using a registry of builders.
type Factory struct {
	cfg      *config.Config
	builders map[string]Builder
}

// NewFactory creates a factory with the default provider registry.
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg, builders: registeredBuilders()}
}

// Register allows tests or callers to override provider builders.
func (f *Factory) Register(name string, builder Builder) {
	if f.builders == nil {
		f.builders = make(map[string]Builder)
	}
	f.builders[name] = builder
}

// Build instantiates adapters for every enabled entry, preserving declaration order.
func (f *Factory) Build(ctx context.Context, entries []config.ProviderEntry) ([]Provider, error) {
	if f.cfg == nil {
		return nil, errors.New("providers: config is required")
	}
	lineup := make([]Provider, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsEnabled() {
			continue
		}
		builder, ok := f.builders[entry.Kind]
		if !ok {
			return nil, fmt.Errorf("provider %q: kind %q unsupported", entry.ID, entry.Kind)
		}
		route, err := builder(ctx, f.cfg, entry)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", entry.ID, err)
		}
		lineup = append(lineup, route)
	}
	return lineup, nil
}

// SettingsFromEntry converts a config entry into the static provider description.
func SettingsFromEntry(entry config.ProviderEntry) (models.ProviderConfig, error) {
	capability, err := models.ParseCapability(entry.Capability)
	if err != nil {
		return models.ProviderConfig{}, err
	}
	cost, err := entry.Cost()
	if err != nil {
		return models.ProviderConfig{}, fmt.Errorf("cost_per_image: %w", err)
	}
	metadata := maps.Clone(entry.Metadata)
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return models.ProviderConfig{
		ID:             entry.ID,
		Kind:           entry.Kind,
		Model:          entry.Model,
		Priority:       entry.Priority,
		Capability:     capability,
		TimeoutSeconds: entry.TimeoutSeconds,
		CostPerImage:   cost,
		Metadata:       metadata,
	}, nil
}
