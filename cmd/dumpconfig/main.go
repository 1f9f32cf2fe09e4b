package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/ncecere/holy_coop/backend/internal/config"
)

const redacted = "[redacted]"

func main() {
	configFile := flag.String("config", "", "path to composer.yaml (defaults to the standard search path)")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	redact(cfg)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		log.Fatalf("encode config: %v", err)
	}
}

func redact(cfg *config.Config) {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&cfg.Redis.URL)
	mask(&cfg.Exports.EncryptionKey)
	mask(&cfg.Guardrails.Moderation.WebhookAuthValue)
	mask(&cfg.Credentials.GeminiAPIKey)
	mask(&cfg.Credentials.OpenAIKey)
	mask(&cfg.Credentials.AWSAccessKeyID)
	mask(&cfg.Credentials.AWSSecretAccessKey)
	mask(&cfg.Credentials.GCPJSONCredentials)
	for i := range cfg.Providers {
		entry := &cfg.Providers[i]
		mask(&entry.APIKey)
		if entry.Gemini != nil {
			mask(&entry.Gemini.APIKey)
		}
		if entry.OpenAI != nil {
			mask(&entry.OpenAI.APIKey)
		}
		if entry.Vertex != nil {
			mask(&entry.Vertex.CredentialsJSON)
		}
		if entry.Bedrock != nil {
			mask(&entry.Bedrock.AccessKeyID)
			mask(&entry.Bedrock.SecretAccessKey)
			mask(&entry.Bedrock.SessionToken)
		}
	}
}
