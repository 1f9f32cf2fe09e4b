package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ncecere/holy_coop/backend/internal/adapters/vertex"
	"github.com/ncecere/holy_coop/backend/internal/config"
)

func init() {
	RegisterKind(KindEntry{
		Kind:         "vertex",
		Description:  "Google Vertex AI Imagen",
		Capabilities: []string{"image_edit", "image_generate", "text_only"},
		Builder:      buildVertexRoute,
	})
}

func buildVertexRoute(ctx context.Context, cfg *config.Config, entry config.ProviderEntry) (Route, error) {
	settings, err := SettingsFromEntry(entry)
	if err != nil {
		return Route{}, err
	}
	md := settings.Metadata
	override := entry.Vertex
	if override == nil {
		override = &config.VertexProviderConfig{}
	}

	projectID := firstSet(override.ProjectID, md["gcp_project_id"], cfg.Credentials.GCPProjectID)
	if projectID == "" && entry.Endpoint == "" {
		return Route{}, fmt.Errorf("vertex provider requires gcp_project_id")
	}
	location := firstSet(override.Location, entry.Region, md["vertex_location"], "us-central1")

	credSource := firstSet(override.CredentialsJSON, md["gcp_credentials_json"], cfg.Credentials.GCPJSONCredentials)
	if credSource == "" {
		return Route{}, fmt.Errorf("vertex provider requires gcp credentials json")
	}
	credBytes, err := decodeCredentials(credSource, firstSet(override.CredentialsFormat, md["gcp_credentials_format"]))
	if err != nil {
		return Route{}, err
	}

	adapter, err := vertex.New(ctx, vertex.Options{
		Name:             entry.ID,
		ProjectID:        projectID,
		Location:         location,
		Publisher:        firstSet(override.Publisher, md["vertex_publisher"]),
		Model:            entry.Model,
		Endpoint:         entry.Endpoint,
		CredentialsJSON:  credBytes,
		PersonGeneration: firstSet(override.PersonGeneration, md["person_generation"]),
	})
	if err != nil {
		return Route{}, err
	}

	md["gcp_project_id"] = projectID
	md["vertex_location"] = location

	return Route{Settings: settings, Image: adapter, Health: adapter.HealthCheck}, nil
}

// decodeCredentials accepts raw JSON or base64-encoded JSON service account keys.
func decodeCredentials(source, format string) ([]byte, error) {
	source = strings.TrimSpace(source)
	raw := []byte(source)
	switch strings.ToLower(format) {
	case "base64":
		decoded, err := base64.StdEncoding.DecodeString(source)
		if err != nil {
			return nil, fmt.Errorf("vertex credentials base64 decode: %w", err)
		}
		if !json.Valid(decoded) {
			return nil, fmt.Errorf("vertex credentials base64 decode produced invalid JSON")
		}
		return decoded, nil
	case "json", "":
		if json.Valid(raw) {
			return raw, nil
		}
		if decoded, err := base64.StdEncoding.DecodeString(source); err == nil && json.Valid(decoded) {
			return decoded, nil
		}
		return nil, fmt.Errorf("vertex credentials json invalid or truncated")
	default:
		return nil, fmt.Errorf("vertex credentials format %q not supported", format)
	}
}
