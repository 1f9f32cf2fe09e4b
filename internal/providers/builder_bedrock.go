package providers

import (
	"context"

	"github.com/ncecere/holy_coop/backend/internal/adapters/bedrock"
	"github.com/ncecere/holy_coop/backend/internal/config"
)

func init() {
	RegisterKind(KindEntry{
		Kind:         "bedrock",
		Description:  "Amazon Bedrock Titan Image Generator",
		Capabilities: []string{"image_edit", "image_generate", "text_only"},
		Builder:      buildBedrockRoute,
	})
}

func buildBedrockRoute(ctx context.Context, cfg *config.Config, entry config.ProviderEntry) (Route, error) {
	settings, err := SettingsFromEntry(entry)
	if err != nil {
		return Route{}, err
	}
	override := entry.Bedrock
	if override == nil {
		override = &config.BedrockProviderConfig{}
	}

	adapter, err := bedrock.New(ctx, bedrock.Options{
		Name:            entry.ID,
		Region:          firstSet(override.Region, entry.Region, cfg.Credentials.AWSRegion),
		Profile:         override.Profile,
		AccessKeyID:     firstSet(override.AccessKeyID, cfg.Credentials.AWSAccessKeyID),
		SecretAccessKey: firstSet(override.SecretAccessKey, cfg.Credentials.AWSSecretAccessKey),
		SessionToken:    override.SessionToken,
		Endpoint:        override.Endpoint,
		ModelID:         entry.Model,
		CfgScale:        override.CfgScale,
		Quality:         override.Quality,
	})
	if err != nil {
		return Route{}, err
	}
	return Route{Settings: settings, Image: adapter, Health: adapter.HealthCheck}, nil
}
