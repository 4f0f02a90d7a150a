package form_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/rules"
)

type stubEvent struct {
	prevented int
}

func (e *stubEvent) PreventDefault() {
	e.prevented++
}

func requiredName(v any) string {
	if s, _ := v.(string); s != "" {
		return ""
	}
	return "required"
}

func TestSubmit_RequiredNestedField(t *testing.T) {
	ctrl := form.New(
		map[string]any{"user": map[string]any{"name": "a"}},
		form.WithRule("user.name", requiredName),
	)

	var calls []map[string]any
	submit := ctrl.HandleSubmit(func(values map[string]any) error {
		calls = append(calls, values)
		return nil
	})

	if err := ctrl.Register("user.name").OnChange(""); err != nil {
		t.Fatalf("on change: %v", err)
	}

	ev := &stubEvent{}
	err := submit(ev)
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, form.ErrValidation) {
		t.Fatalf("expected error to wrap ErrValidation")
	}
	if got := ctrl.Errors()["user.name"]; got != "required" {
		t.Fatalf("error = %q, want required", got)
	}
	if len(calls) != 0 {
		t.Fatalf("callback should not run on invalid form")
	}
	if ev.prevented != 1 {
		t.Fatalf("PreventDefault called %d times", ev.prevented)
	}

	if err := ctrl.Register("user.name").OnChange("bob"); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if _, ok := ctrl.Errors()["user.name"]; ok {
		t.Fatalf("error should be cleared after a valid change")
	}

	if err := submit(&stubEvent{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("callback called %d times, want 1", len(calls))
	}
	if got, _ := fieldpath.Get(calls[0], "user.name"); got != "bob" {
		t.Fatalf("submitted user.name = %v", got)
	}
}

func TestSubmit_ValidatesUntouchedFieldsAndReplacesErrors(t *testing.T) {
	ctrl := form.New(map[string]any{"title": ""}, form.WithRules(rules.Set{
		"title": rules.Required("title required"),
		"body":  rules.Required("body required"),
	}))

	if err := ctrl.Register("title").OnChange(""); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if err := ctrl.HandleSubmit(nil)(nil); err == nil {
		t.Fatalf("expected validation failure")
	}
	want := map[string]string{"title": "title required", "body": "body required"}
	if diff := cmp.Diff(want, ctrl.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	_ = ctrl.SetValue("title", "Hello")
	err := ctrl.HandleSubmit(nil)(nil)
	if err == nil || !strings.Contains(err.Error(), "body: body required") {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"body": "body required"}, ctrl.Errors()); diff != "" {
		t.Fatalf("errors should be replaced wholesale (-want +got):\n%s", diff)
	}
}

func TestSubmit_PropagatesCallbackError(t *testing.T) {
	boom := errors.New("boom")
	ctrl := form.New(nil)
	if err := ctrl.HandleSubmit(func(map[string]any) error { return boom })(nil); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestOnChange_OnlyTouchesOwnError(t *testing.T) {
	ctrl := form.New(nil, form.WithRules(rules.Set{
		"a": rules.Required("a required"),
		"b": rules.Required("b required"),
	}))
	_ = ctrl.HandleSubmit(nil)(nil)

	if err := ctrl.Register("a").OnChange("x"); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"b": "b required"}, ctrl.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	if err := ctrl.Register("unruled").OnChange(""); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if ctrl.Error("unruled") != "" {
		t.Fatalf("field without rule should always be valid")
	}
}

func TestRegister_Binding(t *testing.T) {
	ctrl := form.New(map[string]any{
		"count":  3,
		"stocks": []any{map[string]any{"productName": "bolt"}},
	})

	if got := ctrl.Register("count").Value; got != "3" {
		t.Fatalf("count value = %q", got)
	}
	if got := ctrl.Register("stocks.0.productName").Value; got != "bolt" {
		t.Fatalf("productName value = %q", got)
	}
	b := ctrl.Register("missing.path")
	if b.Name != "missing.path" || b.Value != "" {
		t.Fatalf("unexpected binding: %+v", b)
	}
}

func TestOnChange_DoesNotMutatePreviousSnapshot(t *testing.T) {
	ctrl := form.New(map[string]any{"user": map[string]any{"name": "a"}})
	before := ctrl.Values()

	if err := ctrl.Register("user.name").OnChange("bob"); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if err := ctrl.Register("stocks.0.productName").OnChange("nut"); err != nil {
		t.Fatalf("on change: %v", err)
	}

	if diff := cmp.Diff(map[string]any{"user": map[string]any{"name": "a"}}, before); diff != "" {
		t.Fatalf("previous snapshot mutated (-want +got):\n%s", diff)
	}
	want := map[string]any{
		"user":   map[string]any{"name": "bob"},
		"stocks": []any{map[string]any{"productName": "nut"}},
	}
	if diff := cmp.Diff(want, ctrl.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestSetValue_Errors(t *testing.T) {
	ctrl := form.New(map[string]any{"tags": []any{"a"}})
	if err := ctrl.SetValue("", "x"); !errors.Is(err, fieldpath.ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
	if err := ctrl.SetValue("tags.first", "x"); !errors.Is(err, fieldpath.ErrIndexExpected) {
		t.Fatalf("expected ErrIndexExpected, got %v", err)
	}
	if diff := cmp.Diff(map[string]any{"tags": []any{"a"}}, ctrl.Values()); diff != "" {
		t.Fatalf("failed writes must not change state (-want +got):\n%s", diff)
	}
}

func TestSetValue_KeepsTypedContainers(t *testing.T) {
	ctrl := form.New(map[string]any{
		"tags": []string{"a", "b"},
		"meta": map[string]string{"keep": "me"},
	})

	if got := ctrl.Register("tags.0").Value; got != "a" {
		t.Fatalf("binding value = %q, want a", got)
	}
	if err := ctrl.SetValue("tags.1", "z"); err != nil {
		t.Fatalf("set tags: %v", err)
	}
	if err := ctrl.SetValue("meta.x", "y"); err != nil {
		t.Fatalf("set meta: %v", err)
	}

	want := map[string]any{
		"tags": []any{"a", "z"},
		"meta": map[string]any{"keep": "me", "x": "y"},
	}
	if diff := cmp.Diff(want, ctrl.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestWatch(t *testing.T) {
	ctrl := form.New(map[string]any{"user": map[string]any{"tags": []any{"x", "y"}}})

	first := ctrl.Watch("user.tags.1")
	second := ctrl.Watch("user.tags.1")
	if first != "y" || second != "y" {
		t.Fatalf("watch returned %v / %v", first, second)
	}
	if got := ctrl.Watch("user.missing.deep"); got != nil {
		t.Fatalf("missing path should be nil, got %v", got)
	}
	if _, ok := ctrl.Lookup("user.tags.9"); ok {
		t.Fatalf("out of range index should not resolve")
	}
}

func TestWatchFunc(t *testing.T) {
	ctrl := form.New(map[string]any{"user": map[string]any{"name": "a"}})

	var seen []any
	id := ctrl.WatchFunc("user.name", func(v any) { seen = append(seen, v) })
	if id == "" {
		t.Fatalf("expected registration id")
	}

	_ = ctrl.SetValue("user.name", "b")
	_ = ctrl.SetValue("other", 1)
	_ = ctrl.SetValue("user.name", "b")
	ctrl.Unwatch(id)
	_ = ctrl.SetValue("user.name", "c")

	if diff := cmp.Diff([]any{"b"}, seen); diff != "" {
		t.Fatalf("watch notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	initial := map[string]any{"user": map[string]any{"name": "a"}}
	ctrl := form.New(initial, form.WithRule("user.name", requiredName))

	var fired int
	ctrl.WatchFunc("user.name", func(any) { fired++ })

	_ = ctrl.Register("user.name").OnChange("")
	_ = ctrl.SetValue("user.name", "b")
	_ = ctrl.SetValue("extra", true)
	_ = ctrl.HandleSubmit(nil)(nil)
	firedBeforeReset := fired

	ctrl.Reset(nil)

	if reflect.ValueOf(ctrl.Values()).Pointer() != reflect.ValueOf(initial).Pointer() {
		t.Fatalf("reset should restore the construction-time map")
	}
	if diff := cmp.Diff(map[string]any{"user": map[string]any{"name": "a"}}, ctrl.Values()); diff != "" {
		t.Fatalf("initial values were mutated (-want +got):\n%s", diff)
	}
	if len(ctrl.Errors()) != 0 {
		t.Fatalf("errors should be cleared, got %v", ctrl.Errors())
	}

	_ = ctrl.SetValue("user.name", "z")
	if fired != firedBeforeReset {
		t.Fatalf("watchers should be dropped by reset")
	}

	ctrl.Reset(map[string]any{"fresh": 1})
	if diff := cmp.Diff(map[string]any{"fresh": 1}, ctrl.Values()); diff != "" {
		t.Fatalf("reset with values mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate(t *testing.T) {
	ctrl := form.New(map[string]any{"n": 1})
	ctrl.Update(func(prev map[string]any) map[string]any {
		next := fieldpath.CloneShallow(prev)
		next["n"] = prev["n"].(int) + 1
		return next
	})
	if got := ctrl.Watch("n"); got != 2 {
		t.Fatalf("n = %v", got)
	}

	ctrl.Update(func(map[string]any) map[string]any { return nil })
	if ctrl.Values() == nil || len(ctrl.Values()) != 0 {
		t.Fatalf("nil update result should clear the form")
	}
}

func TestSubscribe(t *testing.T) {
	ctrl := form.New(nil)
	var commits int
	unsubscribe := ctrl.Subscribe(func(_, _ map[string]any) { commits++ })
	_ = ctrl.SetValue("a", 1)
	unsubscribe()
	_ = ctrl.SetValue("a", 2)
	if commits != 1 {
		t.Fatalf("commits = %d, want 1", commits)
	}
}

func TestSanitizer(t *testing.T) {
	ctrl := form.New(nil, form.WithSanitizer(form.StrictSanitizer()))
	if err := ctrl.Register("bio").OnChange("<b>bob</b><script>alert(1)</script>"); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if got := ctrl.Watch("bio"); got != "bob" {
		t.Fatalf("sanitized value = %q", got)
	}
}

func TestSanitizer_KeepsPlainText(t *testing.T) {
	ctrl := form.New(nil,
		form.WithSanitizer(form.StrictSanitizer()),
		form.WithRule("name", rules.MaxLength(19, "")),
	)
	binding := ctrl.Register("name")
	if err := binding.OnChange("Tom & Jerry O'Brien"); err != nil {
		t.Fatalf("on change: %v", err)
	}
	if got := ctrl.Watch("name"); got != "Tom & Jerry O'Brien" {
		t.Fatalf("stored value = %q", got)
	}
	if got := ctrl.Error("name"); got != "" {
		t.Fatalf("rule should see the unescaped text, got error %q", got)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	ctrl := form.New(nil, form.WithLogger(logger), form.WithRule("name", rules.Required("")))

	_ = ctrl.HandleSubmit(nil)(nil)
	if !strings.Contains(buf.String(), "submit aborted") {
		t.Fatalf("expected debug log, got %q", buf.String())
	}
}
