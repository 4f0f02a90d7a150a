package rules

import (
	"regexp"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRequired(t *testing.T) {
	rule := Required("")
	for _, value := range []any{nil, "", "   ", []any{}, map[string]any{}} {
		if got := rule(value); got != "required" {
			t.Fatalf("Required(%#v) = %q, want required", value, got)
		}
	}
	for _, value := range []any{"bob", 0, false, []any{"x"}} {
		if got := rule(value); got != "" {
			t.Fatalf("Required(%#v) = %q, want valid", value, got)
		}
	}
}

func TestLengthRules(t *testing.T) {
	minLen := MinLength(3, "too short")
	maxLen := MaxLength(3, "")

	if got := minLen("ab"); got != "too short" {
		t.Fatalf("MinLength: got %q", got)
	}
	if got := minLen(""); got != "" {
		t.Fatalf("MinLength should ignore empty values, got %q", got)
	}
	if got := minLen("äöü"); got != "" {
		t.Fatalf("MinLength should count runes, got %q", got)
	}
	if got := maxLen([]any{1, 2, 3, 4}); got != "must be at most 3 characters" {
		t.Fatalf("MaxLength: got %q", got)
	}
	if got := maxLen(42); got != "" {
		t.Fatalf("MaxLength should ignore values without length, got %q", got)
	}
}

func TestPatternAndOneOf(t *testing.T) {
	email := Pattern(regexp.MustCompile(`^[^@]+@[^@]+$`), "invalid email")
	if got := email("nope"); got != "invalid email" {
		t.Fatalf("Pattern: got %q", got)
	}
	if got := email("a@b"); got != "" {
		t.Fatalf("Pattern: got %q", got)
	}

	status := OneOf([]string{"draft", "published"}, "")
	if got := status("archived"); got != "must be one of draft, published" {
		t.Fatalf("OneOf: got %q", got)
	}
	if got := status("draft"); got != "" {
		t.Fatalf("OneOf: got %q", got)
	}
}

func TestCompose(t *testing.T) {
	rule := Compose(nil, Required("name required"), MinLength(2, "name too short"))
	if got := rule(""); got != "name required" {
		t.Fatalf("got %q", got)
	}
	if got := rule("a"); got != "name too short" {
		t.Fatalf("got %q", got)
	}
	if got := rule("al"); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestSet_CloneDropsNilRules(t *testing.T) {
	set := Set{"name": Required(""), "skip": nil}
	names := set.Clone().Names()
	sort.Strings(names)
	if diff := cmp.Diff([]string{"name"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}
