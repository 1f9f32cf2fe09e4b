package router

import (
	"context"
	"testing"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/models"
	"github.com/ncecere/holy_coop/backend/internal/providers"
)

type stubComposer struct{}

func (stubComposer) Attempt(ctx context.Context, payload models.ImagePayload) (models.ImageOutcome, error) {
	return models.ImageOutcome{}, nil
}

func route(id string, priority int) providers.Route {
	return providers.Route{Settings: models.ProviderConfig{ID: id, Priority: priority}, Image: stubComposer{}}
}

func TestEngineSetOrdersByPriority(t *testing.T) {
	engine := NewEngine()
	engine.Set([]providers.Provider{route("c", 3), route("a", 1), route("b", 1)})

	got := engine.Providers()
	if len(got) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(got))
	}
	want := []string{"a", "b", "c"}
	for i, p := range got {
		if p.Config().ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], p.Config().ID)
		}
	}
	if _, ok := engine.Lookup("b"); !ok {
		t.Fatalf("lookup failed for b")
	}
	if _, ok := engine.Lookup("zzz"); ok {
		t.Fatalf("lookup should fail for unknown id")
	}
}

func TestEngineSelectKeepsFallbackOrder(t *testing.T) {
	engine := NewEngine()
	engine.Set([]providers.Provider{route("a", 1), route("b", 2), route("c", 3)})

	selected, unknown := engine.Select([]string{"c", "a", "nope"})
	if len(selected) != 2 || selected[0].Config().ID != "a" || selected[1].Config().ID != "c" {
		t.Fatalf("unexpected selection %v", selected)
	}
	if len(unknown) != 1 || unknown[0] != "nope" {
		t.Fatalf("expected unknown id reported, got %v", unknown)
	}
	all, _ := engine.Select(nil)
	if len(all) != 3 {
		t.Fatalf("empty selection should return the lineup")
	}
}

func TestEngineReloadKeepsLineupOnError(t *testing.T) {
	engine := NewEngine()
	engine.Set([]providers.Provider{route("a", 1)})

	factory := providers.NewFactory(&config.Config{})
	err := engine.Reload(context.Background(), factory, []config.ProviderEntry{{ID: "x", Kind: "mystery", Model: "m"}})
	if err == nil {
		t.Fatalf("expected reload error")
	}
	if got := engine.Providers(); len(got) != 1 || got[0].Config().ID != "a" {
		t.Fatalf("lineup should be unchanged, got %v", got)
	}
}

func TestEngineReloadBuildsFromFactory(t *testing.T) {
	engine := NewEngine()
	factory := providers.NewFactory(&config.Config{})
	factory.Register("stub", func(ctx context.Context, cfg *config.Config, entry config.ProviderEntry) (providers.Route, error) {
		settings, err := providers.SettingsFromEntry(entry)
		if err != nil {
			return providers.Route{}, err
		}
		return providers.Route{Settings: settings, Image: stubComposer{}}, nil
	})
	entries := []config.ProviderEntry{
		{ID: "second", Kind: "stub", Model: "m", Priority: 2},
		{ID: "first", Kind: "stub", Model: "m", Priority: 1},
	}
	if err := engine.Reload(context.Background(), factory, entries); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := engine.Providers(); got[0].Config().ID != "first" {
		t.Fatalf("expected priority order after reload, got %s", got[0].Config().ID)
	}
	if len(engine.Entries()) != 2 {
		t.Fatalf("expected entries recorded")
	}
}
