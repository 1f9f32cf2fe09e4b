package router

import (
	"context"
	"errors"
	"sync"

	"github.com/ncecere/holy_coop/backend/internal/config"
	"github.com/ncecere/holy_coop/backend/internal/orchestrator"
	"github.com/ncecere/holy_coop/backend/internal/providers"
)

// Engine holds the configured provider lineup in fallback order. It keeps no
// failure memory; every orchestration sees the full lineup.
type Engine struct {
	mu      sync.RWMutex
	lineup  []providers.Provider
	byID    map[string]providers.Provider
	entries []config.ProviderEntry
}

func NewEngine() *Engine {
	return &Engine{byID: make(map[string]providers.Provider)}
}

// Reload rebuilds the lineup from config entries. On error the previous
// lineup stays active.
func (e *Engine) Reload(ctx context.Context, factory *providers.Factory, entries []config.ProviderEntry) error {
	if factory == nil {
		return errors.New("provider factory required")
	}
	built, err := factory.Build(ctx, entries)
	if err != nil {
		return err
	}
	e.Set(built)

	e.mu.Lock()
	e.entries = append([]config.ProviderEntry(nil), entries...)
	e.mu.Unlock()
	return nil
}

// Set replaces the lineup directly.
func (e *Engine) Set(lineup []providers.Provider) {
	ordered := orchestrator.Sort(lineup)
	byID := make(map[string]providers.Provider, len(ordered))
	for _, p := range ordered {
		byID[p.Config().ID] = p
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lineup = ordered
	e.byID = byID
}

// Providers returns a copy of the lineup in fallback order.
func (e *Engine) Providers() []providers.Provider {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]providers.Provider, len(e.lineup))
	copy(out, e.lineup)
	return out
}

// Lookup finds a provider by id.
func (e *Engine) Lookup(id string) (providers.Provider, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.byID[id]
	return p, ok
}

// Select narrows the lineup to the requested ids, keeping fallback order.
// An empty selection returns the full lineup; unknown ids are reported.
func (e *Engine) Select(ids []string) ([]providers.Provider, []string) {
	if len(ids) == 0 {
		return e.Providers(), nil
	}
	want := make(map[string]struct{}, len(ids))
	var unknown []string
	for _, id := range ids {
		if _, ok := e.Lookup(id); !ok {
			unknown = append(unknown, id)
			continue
		}
		want[id] = struct{}{}
	}
	selected := make([]providers.Provider, 0, len(want))
	for _, p := range e.Providers() {
		if _, ok := want[p.Config().ID]; ok {
			selected = append(selected, p)
		}
	}
	return selected, unknown
}

// Entries returns the config entries the lineup was last built from.
func (e *Engine) Entries() []config.ProviderEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]config.ProviderEntry(nil), e.entries...)
}
