// Package fixtures holds recorded provider responses used by adapter
// contract tests.
package fixtures

import (
	"embed"
	"encoding/json"
	"path"
	"testing"
)

//go:embed testdata/*.json
var recorded embed.FS

// Bytes returns the recorded response body, failing the test when missing.
func Bytes(tb testing.TB, name string) []byte {
	tb.Helper()
	body, err := recorded.ReadFile(path.Join("testdata", name))
	if err != nil {
		tb.Fatalf("fixture %s: %v", name, err)
	}
	return body
}

// Decode unmarshals the recorded response into a fresh T.
func Decode[T any](tb testing.TB, name string) T {
	tb.Helper()
	var out T
	if err := json.Unmarshal(Bytes(tb, name), &out); err != nil {
		tb.Fatalf("fixture %s: decode: %v", name, err)
	}
	return out
}
