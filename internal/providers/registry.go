package providers

import (
	"maps"
	"slices"
	"strings"
)

// KindEntry describes a provider kind that lineup entries may reference.
type KindEntry struct {
	Kind         string
	Description  string
	Capabilities []string
	Builder      Builder
}

var kinds = make(map[string]KindEntry)

// RegisterKind makes a provider kind available to every Factory created
// afterwards. It is meant to be called from init.
func RegisterKind(k KindEntry) {
	switch {
	case k.Kind == "":
		panic("providers: kind name required")
	case k.Builder == nil:
		panic("providers: builder required for kind " + k.Kind)
	}
	if k.Description == "" {
		k.Description = k.Kind
	}
	k.Capabilities = slices.Sorted(slices.Values(k.Capabilities))
	kinds[k.Kind] = k
}

// Kinds lists the registered provider kinds ordered by name.
func Kinds() []KindEntry {
	out := make([]KindEntry, 0, len(kinds))
	for _, name := range slices.Sorted(maps.Keys(kinds)) {
		out = append(out, kinds[name])
	}
	return out
}

func registeredBuilders() map[string]Builder {
	builders := make(map[string]Builder, len(kinds))
	for name, k := range kinds {
		builders[name] = k.Builder
	}
	return builders
}

// firstSet returns the first value that is not blank after trimming.
func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
