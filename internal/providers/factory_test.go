package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/models"
)

type stubComposer struct{}

func (stubComposer) Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error) {
	return models.ImageOutcome{Image: []byte("img")}, nil
}

func TestFactoryBuildSkipsDisabledAndKeepsOrder(t *testing.T) {
	disabled := false
	f := &Factory{cfg: &config.Config{}}
	f.Register("fake", func(ctx context.Context, cfg *config.Config, entry config.ProviderEntry) (Route, error) {
		settings, err := SettingsFromEntry(entry)
		if err != nil {
			return Route{}, err
		}
		return Route{Settings: settings, Image: stubComposer{}}, nil
	})
	lineup, err := f.Build(context.Background(), []config.ProviderEntry{
		{ID: "b", Kind: "fake", Model: "m", Priority: 2},
		{ID: "off", Kind: "fake", Model: "m", Enabled: &disabled},
		{ID: "a", Kind: "fake", Model: "m", Priority: 1, Capability: "text-only", CostPerImage: "0.02"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(lineup) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(lineup))
	}
	if lineup[0].Config().ID != "b" || lineup[1].Config().ID != "a" {
		t.Fatalf("declaration order not preserved")
	}
	second := lineup[1].Config()
	if second.Capability != models.CapabilityTextOnly {
		t.Fatalf("expected text-only capability, got %s", second.Capability)
	}
	if second.CostPerImage.String() != "0.02" {
		t.Fatalf("unexpected cost %s", second.CostPerImage)
	}
}

func TestFactoryBuildRejectsUnknownKind(t *testing.T) {
	f := &Factory{cfg: &config.Config{}}
	_, err := f.Build(context.Background(), []config.ProviderEntry{{ID: "x", Kind: "mystery", Model: "m"}})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported kind error, got %v", err)
	}
}

func TestKindsRegistered(t *testing.T) {
	names := make([]string, 0)
	for _, k := range Kinds() {
		names = append(names, k.Kind)
	}
	if strings.Join(names, ",") != "bedrock,gemini,openai,vertex" {
		t.Fatalf("unexpected kinds %v", names)
	}
}

func TestFirstSetSkipsBlank(t *testing.T) {
	if got := firstSet("", "  ", " us-east-1 ", "eu-west-1"); got != "us-east-1" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestGeminiBuilderRequiresKey(t *testing.T) {
	_, err := buildGeminiRoute(context.Background(), &config.Config{}, config.ProviderEntry{ID: "g", Kind: "gemini", Model: "m"})
	if err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestDecodeCredentialsAcceptsBase64(t *testing.T) {
	out, err := decodeCredentials("eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0=", "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != `{"type":"service_account"}` {
		t.Fatalf("unexpected decoded credentials %s", out)
	}
	if _, err := decodeCredentials("not json", "json"); err == nil {
		t.Fatalf("expected invalid credentials error")
	}
}

func TestRouteWithoutComposerIsRejected(t *testing.T) {
	route := Route{Settings: models.ProviderConfig{ID: "empty"}}
	_, err := route.Attempt(context.Background(), models.ImagePayload{})
	if Classify(err) != models.ErrorProviderRejected {
		t.Fatalf("expected provider rejected, got %v", err)
	}
	var perr *models.ProviderError
	if !errors.As(err, &perr) || perr.Provider != "empty" {
		t.Fatalf("expected provider error for route, got %v", err)
	}
}
