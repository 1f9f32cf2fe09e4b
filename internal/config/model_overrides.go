package config

// ProviderOverrides captures kind specific configuration for a provider entry.
type ProviderOverrides struct {
	Gemini  *GeminiProviderConfig  `mapstructure:"gemini" json:"gemini,omitempty"`
	Vertex  *VertexProviderConfig  `mapstructure:"vertex" json:"vertex,omitempty"`
	Bedrock *BedrockProviderConfig `mapstructure:"bedrock" json:"bedrock,omitempty"`
	OpenAI  *OpenAIProviderConfig  `mapstructure:"openai" json:"openai,omitempty"`
}

type GeminiProviderConfig struct {
	APIKey          string `mapstructure:"api_key" json:"api_key"`
	BaseURL         string `mapstructure:"base_url" json:"base_url"`
	ImageOnly       bool   `mapstructure:"image_only" json:"image_only"`
	SafetyThreshold string `mapstructure:"safety_threshold" json:"safety_threshold"`
}

type VertexProviderConfig struct {
	ProjectID         string `mapstructure:"gcp_project_id" json:"gcp_project_id"`
	Location          string `mapstructure:"vertex_location" json:"vertex_location"`
	Publisher         string `mapstructure:"vertex_publisher" json:"vertex_publisher"`
	CredentialsJSON   string `mapstructure:"gcp_credentials_json" json:"gcp_credentials_json"`
	CredentialsFormat string `mapstructure:"gcp_credentials_format" json:"gcp_credentials_format"`
	PersonGeneration  string `mapstructure:"person_generation" json:"person_generation"`
}

type BedrockProviderConfig struct {
	Region          string  `mapstructure:"region" json:"region"`
	AccessKeyID     string  `mapstructure:"aws_access_key_id" json:"aws_access_key_id"`
	SecretAccessKey string  `mapstructure:"aws_secret_access_key" json:"aws_secret_access_key"`
	SessionToken    string  `mapstructure:"aws_session_token" json:"aws_session_token"`
	Profile         string  `mapstructure:"aws_profile" json:"aws_profile"`
	Endpoint        string  `mapstructure:"endpoint" json:"endpoint"`
	CfgScale        float64 `mapstructure:"cfg_scale" json:"cfg_scale"`
	Quality         string  `mapstructure:"quality" json:"quality"`
}

type OpenAIProviderConfig struct {
	APIKey       string `mapstructure:"api_key" json:"api_key"`
	Organization string `mapstructure:"openai_organization" json:"openai_organization"`
	BaseURL      string `mapstructure:"base_url" json:"base_url"`
	Size         string `mapstructure:"size" json:"size"`
	Quality      string `mapstructure:"quality" json:"quality"`
}
