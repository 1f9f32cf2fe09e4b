package orchestrator

import (
	"sort"

	"github.com/ncecere/holy_coop/backend/internal/providers"
)

// Sort returns the lineup in fallback order: ascending priority, ties kept in
// list order. The input slice is not modified.
func Sort(lineup []providers.Provider) []providers.Provider {
	ordered := make([]providers.Provider, 0, len(lineup))
	for _, p := range lineup {
		if p != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Config().Priority < ordered[j].Config().Priority
	})
	return ordered
}
