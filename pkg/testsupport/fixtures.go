package testsupport

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/rules"
)

// MustLoadDefinition loads a definition fixture, failing the test on error.
func MustLoadDefinition(t *testing.T, path string) definition.Definition {
	t.Helper()

	def, err := definition.Load(path)
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	return def
}

// MustBuild returns the initial values and rules of a definition.
func MustBuild(t *testing.T, def definition.Definition) (map[string]any, rules.Set) {
	t.Helper()

	initial, set, err := definition.Build(def)
	if err != nil {
		t.Fatalf("build definition: %v", err)
	}
	return initial, set
}

// NewController loads a definition fixture and returns it with a controller
// seeded from it.
func NewController(t *testing.T, path string, opts ...form.Option) (definition.Definition, *form.Controller) {
	t.Helper()

	def := MustLoadDefinition(t, path)
	initial, set := MustBuild(t, def)
	opts = append([]form.Option{form.WithRules(set)}, opts...)
	return def, form.New(initial, opts...)
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// MustReadGoldenJSON decodes a JSON golden file into a generic value.
func MustReadGoldenJSON(t *testing.T, path string) any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
	return out
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
