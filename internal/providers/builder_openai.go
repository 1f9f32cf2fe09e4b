package providers

import (
	"context"
	"fmt"

	"github.com/ncecere/holy_coop/backend/internal/adapters/openai"
	"github.com/ncecere/holy_coop/backend/internal/config"
)

func init() {
	RegisterKind(KindEntry{
		Kind:         "openai",
		Description:  "OpenAI Images API (and compatible deployments)",
		Capabilities: []string{"image_edit", "image_generate", "text_only"},
		Builder:      buildOpenAIRoute,
	})
}

func buildOpenAIRoute(ctx context.Context, cfg *config.Config, entry config.ProviderEntry) (Route, error) {
	settings, err := SettingsFromEntry(entry)
	if err != nil {
		return Route{}, err
	}
	override := entry.OpenAI
	if override == nil {
		override = &config.OpenAIProviderConfig{}
	}
	apiKey := firstSet(override.APIKey, entry.APIKey, cfg.Credentials.OpenAIKey)
	if apiKey == "" {
		return Route{}, fmt.Errorf("openai provider requires api_key")
	}

	adapter, err := openai.New(openai.Options{
		Name:         entry.ID,
		APIKey:       apiKey,
		BaseURL:      firstSet(override.BaseURL, entry.Endpoint),
		Organization: firstSet(override.Organization, settings.Metadata["openai_organization"]),
		Model:        entry.Model,
		Size:         override.Size,
		Quality:      override.Quality,
	})
	if err != nil {
		return Route{}, err
	}
	return Route{Settings: settings, Image: adapter, Health: adapter.HealthCheck}, nil
}
