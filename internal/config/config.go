package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the composer service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RateLimits    RateLimitConfig     `mapstructure:"rate_limits"`
	Orchestrator  OrchestratorConfig  `mapstructure:"orchestrator"`
	Guardrails    GuardrailConfig     `mapstructure:"guardrails"`
	Credentials   CredentialConfig    `mapstructure:"credentials"`
	Exports       ExportConfig        `mapstructure:"exports"`
	Events        EventsConfig        `mapstructure:"events"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Health        HealthConfig        `mapstructure:"health"`
	Providers     []ProviderEntry     `mapstructure:"providers"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
	IdempotencyTTL        time.Duration `mapstructure:"idempotency_ttl"`
	// ProxyHeader names the header carrying the client address behind a load
	// balancer, e.g. X-Forwarded-For. Empty uses the socket peer.
	ProxyHeader string `mapstructure:"proxy_header"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	ParallelRequests  int  `mapstructure:"parallel_requests"`
}

// OrchestratorConfig is the explicit configuration object handed to the orchestrator.
type OrchestratorConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	MaxTimeout     time.Duration `mapstructure:"max_timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	MaxImageBytes  int64         `mapstructure:"max_image_bytes"`
}

type GuardrailConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	BlockedKeywords []string         `mapstructure:"blocked_keywords"`
	Moderation      ModerationConfig `mapstructure:"moderation"`
}

// ModerationConfig points the subject pre-check at an external moderation webhook.
type ModerationConfig struct {
	WebhookURL        string        `mapstructure:"webhook_url"`
	WebhookAuthHeader string        `mapstructure:"webhook_auth_header"`
	WebhookAuthValue  string        `mapstructure:"webhook_auth_value"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// CredentialConfig holds shared provider secrets used when an entry omits its own.
type CredentialConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key"`
	OpenAIKey          string `mapstructure:"openai_key"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	AWSRegion          string `mapstructure:"aws_region"`
	GCPProjectID       string `mapstructure:"gcp_project_id"`
	GCPJSONCredentials string `mapstructure:"gcp_json_credentials"`
}

type ExportConfig struct {
	Enabled       bool              `mapstructure:"enabled"`
	Storage       string            `mapstructure:"storage"`
	JPEGQuality   int               `mapstructure:"jpeg_quality"`
	EncryptionKey string            `mapstructure:"encryption_key"`
	S3            ExportS3Config    `mapstructure:"s3"`
	Local         ExportLocalConfig `mapstructure:"local"`
}

type ExportS3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type ExportLocalConfig struct {
	Directory string `mapstructure:"directory"`
}

type EventsConfig struct {
	LogEvents bool          `mapstructure:"log_events"`
	Webhooks  []string      `mapstructure:"webhooks"`
	Webhook   WebhookConfig `mapstructure:"webhook"`
}

type WebhookConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type ObservabilityConfig struct {
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

type HealthConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ProviderEntry declares one provider of the fallback lineup.
type ProviderEntry struct {
	ID                string            `mapstructure:"id"`
	Kind              string            `mapstructure:"kind"`
	Model             string            `mapstructure:"model"`
	Priority          int               `mapstructure:"priority"`
	Capability        string            `mapstructure:"capability"`
	TimeoutSeconds    int               `mapstructure:"timeout_seconds"`
	Enabled           *bool             `mapstructure:"enabled"`
	CostPerImage      string            `mapstructure:"cost_per_image"`
	Endpoint          string            `mapstructure:"endpoint"`
	APIKey            string            `mapstructure:"api_key"`
	Region            string            `mapstructure:"region"`
	Metadata          map[string]string `mapstructure:"metadata"`
	ProviderOverrides `mapstructure:",squash"`
}

func (e ProviderEntry) IsEnabled() bool {
	if e.Enabled == nil {
		return true
	}
	return *e.Enabled
}

// Cost parses the configured per-image price; empty means zero.
func (e ProviderEntry) Cost() (decimal.Decimal, error) {
	raw := strings.TrimSpace(e.CostPerImage)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else {
		if cfg := os.Getenv("COMPOSER_CONFIG_FILE"); cfg != "" {
			v.SetConfigFile(cfg)
			explicitFile = true
		}
	}

	if !explicitFile {
		v.SetConfigName("composer")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("COMPOSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and fills derived defaults.
func (c *Config) Validate() error {
	var missing []string

	if len(c.Providers) == 0 {
		missing = append(missing, "providers")
	}
	if c.RateLimits.Enabled && c.Redis.URL == "" {
		missing = append(missing, "COMPOSER_REDIS_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}
	if c.Server.BodyLimitMB <= 0 {
		c.Server.BodyLimitMB = 8
	}
	if err := c.RateLimits.validate(); err != nil {
		return err
	}
	if err := c.Orchestrator.validate(); err != nil {
		return err
	}
	if err := c.Exports.validate(); err != nil {
		return err
	}
	c.Guardrails.BlockedKeywords = normalizeStringSlice(c.Guardrails.BlockedKeywords)
	c.Events.Webhooks = normalizeStringSlice(c.Events.Webhooks)
	if c.Events.Webhook.Timeout <= 0 {
		c.Events.Webhook.Timeout = 5 * time.Second
	}
	if c.Events.Webhook.MaxRetries <= 0 {
		c.Events.Webhook.MaxRetries = 3
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for i := range c.Providers {
		entry := &c.Providers[i]
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Kind = strings.ToLower(strings.TrimSpace(entry.Kind))
		if entry.ID == "" {
			return fmt.Errorf("providers[%d].id must be provided", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("providers[%d].id %q is duplicated", i, entry.ID)
		}
		seen[entry.ID] = struct{}{}
		if entry.Kind == "" {
			return fmt.Errorf("providers[%d].kind must be provided", i)
		}
		if entry.Model == "" {
			return fmt.Errorf("providers[%d].model must be provided", i)
		}
		if entry.TimeoutSeconds < 0 {
			return fmt.Errorf("providers[%d].timeout_seconds must be >= 0", i)
		}
		if limit := int(c.Orchestrator.MaxTimeout / time.Second); entry.TimeoutSeconds > limit {
			return fmt.Errorf("providers[%d].timeout_seconds must be <= %d", i, limit)
		}
		cost, err := entry.Cost()
		if err != nil {
			return fmt.Errorf("providers[%d].cost_per_image: %w", i, err)
		}
		if cost.IsNegative() {
			return fmt.Errorf("providers[%d].cost_per_image must be >= 0", i)
		}
	}

	return nil
}

func (r *RateLimitConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	if r.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limits.requests_per_minute must be > 0 when rate limiting is enabled")
	}
	if r.ParallelRequests < 0 {
		return fmt.Errorf("rate_limits.parallel_requests must be >= 0")
	}
	return nil
}

func (o *OrchestratorConfig) validate() error {
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = 60 * time.Second
	}
	if o.MaxTimeout <= 0 {
		o.MaxTimeout = 240 * time.Second
	}
	if o.DefaultTimeout > o.MaxTimeout {
		return fmt.Errorf("orchestrator.default_timeout cannot exceed orchestrator.max_timeout")
	}
	if o.RetryDelay < 0 {
		return fmt.Errorf("orchestrator.retry_delay must be >= 0")
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 2
	}
	if o.MaxAttempts > 2 {
		return fmt.Errorf("orchestrator.max_attempts must be 1 or 2")
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = 5 << 20
	}
	return nil
}

func (e *ExportConfig) validate() error {
	if strings.TrimSpace(e.Storage) == "" {
		e.Storage = "local"
	}
	e.Storage = strings.ToLower(strings.TrimSpace(e.Storage))
	switch e.Storage {
	case "local", "s3":
	default:
		return fmt.Errorf("exports.storage must be local or s3")
	}
	if e.Enabled && e.Storage == "s3" && e.S3.Bucket == "" {
		return fmt.Errorf("exports.s3.bucket must be provided for s3 storage")
	}
	if e.JPEGQuality <= 0 || e.JPEGQuality > 100 {
		e.JPEGQuality = 90
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 8)
	v.SetDefault("server.request_timeout", "600s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")
	v.SetDefault("server.idempotency_ttl", "30m")
	v.SetDefault("server.proxy_header", "")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("rate_limits.enabled", false)
	v.SetDefault("rate_limits.requests_per_minute", 30)
	v.SetDefault("rate_limits.parallel_requests", 4)

	v.SetDefault("orchestrator.default_timeout", "60s")
	v.SetDefault("orchestrator.max_timeout", "240s")
	v.SetDefault("orchestrator.retry_delay", "1500ms")
	v.SetDefault("orchestrator.max_attempts", 2)
	v.SetDefault("orchestrator.max_image_bytes", 5<<20)

	v.SetDefault("guardrails.enabled", false)
	v.SetDefault("guardrails.moderation.timeout", "5s")

	v.SetDefault("exports.enabled", true)
	v.SetDefault("exports.storage", "local")
	v.SetDefault("exports.jpeg_quality", 90)
	v.SetDefault("exports.local.directory", "./data/exports")

	v.SetDefault("events.log_events", true)
	v.SetDefault("events.webhook.timeout", "5s")
	v.SetDefault("events.webhook.max_retries", 3)

	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.check_interval", "60s")
	v.SetDefault("health.timeout", "5s")
}

func normalizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		case int:
			return time.Duration(v) * time.Second, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
