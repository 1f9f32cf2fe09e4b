package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
redis:
  url: redis://localhost:6379/0
orchestrator:
  retry_delay: 2s
providers:
  - id: gemini-flash
    kind: gemini
    model: gemini-2.5-flash-image
    priority: 1
    capability: image_generate
    cost_per_image: "0.039"
    gemini:
      api_key: test-key
  - id: imagen
    kind: vertex
    model: imagen-3.0-capability-001
    priority: 2
    capability: image_edit
    timeout_seconds: 240
    vertex:
      gcp_project_id: demo
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "composer.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	cfg, err := Load(Options{ConfigFile: writeConfig(t, sampleConfig), EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Orchestrator.DefaultTimeout != 60*time.Second {
		t.Fatalf("expected 60s default timeout, got %s", cfg.Orchestrator.DefaultTimeout)
	}
	if cfg.Orchestrator.MaxTimeout != 240*time.Second {
		t.Fatalf("expected 240s max timeout, got %s", cfg.Orchestrator.MaxTimeout)
	}
	if cfg.Orchestrator.RetryDelay != 2*time.Second {
		t.Fatalf("expected retry delay override, got %s", cfg.Orchestrator.RetryDelay)
	}
	if cfg.Orchestrator.MaxAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", cfg.Orchestrator.MaxAttempts)
	}
	if len(cfg.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(cfg.Providers))
	}
	first := cfg.Providers[0]
	if first.Gemini == nil || first.Gemini.APIKey != "test-key" {
		t.Fatalf("expected gemini override to decode, got %+v", first.ProviderOverrides)
	}
	cost, err := first.Cost()
	if err != nil || cost.String() != "0.039" {
		t.Fatalf("unexpected cost %s (%v)", cost, err)
	}
	if cfg.Providers[1].Vertex == nil || cfg.Providers[1].Vertex.ProjectID != "demo" {
		t.Fatalf("expected vertex override to decode")
	}
}

func TestValidateRejectsTimeoutAboveMax(t *testing.T) {
	cfg := &Config{Providers: []ProviderEntry{{ID: "slow", Kind: "gemini", Model: "m", TimeoutSeconds: 600}}}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "timeout_seconds") {
		t.Fatalf("expected timeout validation error, got %v", err)
	}
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	cfg := &Config{Providers: []ProviderEntry{
		{ID: "a", Kind: "gemini", Model: "m"},
		{ID: "a", Kind: "openai", Model: "m"},
	}}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicated") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestValidateRequiresProviders(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "missing required configuration") {
		t.Fatalf("expected missing configuration error, got %v", err)
	}
}

func TestValidateRequiresRedisForRateLimits(t *testing.T) {
	cfg := &Config{
		RateLimits: RateLimitConfig{Enabled: true, RequestsPerMinute: 10},
		Providers:  []ProviderEntry{{ID: "a", Kind: "gemini", Model: "m"}},
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "COMPOSER_REDIS_URL") {
		t.Fatalf("expected redis requirement, got %v", err)
	}
}
