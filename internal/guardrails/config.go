package guardrails

import (
	"time"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

// Config represents the guardrail policy applied to subject descriptions.
type Config struct {
	Enabled         bool
	BlockedKeywords []string
	Moderation      ModerationConfig
}

type ModerationConfig struct {
	WebhookURL        string
	WebhookAuthHeader string
	WebhookAuthValue  string
	Timeout           time.Duration
}

// FromSettings converts the application config section.
func FromSettings(cfg config.GuardrailConfig) Config {
	return Config{
		Enabled:         cfg.Enabled,
		BlockedKeywords: append([]string(nil), cfg.BlockedKeywords...),
		Moderation: ModerationConfig{
			WebhookURL:        cfg.Moderation.WebhookURL,
			WebhookAuthHeader: cfg.Moderation.WebhookAuthHeader,
			WebhookAuthValue:  cfg.Moderation.WebhookAuthValue,
			Timeout:           cfg.Moderation.Timeout,
		},
	}
}
