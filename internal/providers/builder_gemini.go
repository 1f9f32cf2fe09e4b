package providers

import (
	"context"
	"fmt"

	"github.com/ncecere/holy_coop/backend/internal/adapters/gemini"
	"github.com/ncecere/holy_coop/backend/internal/config"
)

func init() {
	RegisterKind(KindEntry{
		Kind:         "gemini",
		Description:  "Google Gemini API image models",
		Capabilities: []string{"image_edit", "image_generate", "text_only"},
		Builder:      buildGeminiRoute,
	})
}

func buildGeminiRoute(ctx context.Context, cfg *config.Config, entry config.ProviderEntry) (Route, error) {
	settings, err := SettingsFromEntry(entry)
	if err != nil {
		return Route{}, err
	}
	override := entry.Gemini
	if override == nil {
		override = &config.GeminiProviderConfig{}
	}
	apiKey := firstSet(override.APIKey, entry.APIKey, cfg.Credentials.GeminiAPIKey)
	if apiKey == "" {
		return Route{}, fmt.Errorf("gemini provider requires api_key")
	}

	adapter, err := gemini.New(ctx, gemini.Options{
		Name:            entry.ID,
		APIKey:          apiKey,
		BaseURL:         firstSet(override.BaseURL, entry.Endpoint),
		Model:           entry.Model,
		ImageOnly:       override.ImageOnly,
		SafetyThreshold: firstSet(override.SafetyThreshold, settings.Metadata["safety_threshold"]),
	})
	if err != nil {
		return Route{}, err
	}
	return Route{Settings: settings, Image: adapter, Health: adapter.HealthCheck}, nil
}
