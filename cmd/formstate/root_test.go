package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/prompt"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

const (
	signupFixture  = "../../pkg/definition/testdata/signup.yaml"
	articleFixture = "../../pkg/definition/testdata/articles.openapi.yaml"
)

func runCmd(t *testing.T, driver *testsupport.ScriptedDriver, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd(deps{driver: func() prompt.Driver { return driver }})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(testsupport.Context())
	return stdout.String(), stderr.String(), err
}

func TestFill_DefinitionYAMLOutput(t *testing.T) {
	driver := &testsupport.ScriptedDriver{
		Inputs:   []string{"Al", "al@example.com", "go"},
		Selects:  []int{0},
		Confirms: []bool{false, true, false, true},
	}

	stdout, stderr, err := runCmd(t, driver, "fill", "-d", signupFixture, "-o", "yaml")
	if err != nil {
		t.Fatalf("fill: %v (stderr: %s)", err, stderr)
	}

	var got map[string]any
	if err := yaml.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	want := map[string]any{
		"user":       map[string]any{"name": "Al", "email": "al@example.com"},
		"plan":       "free",
		"tags":       []any{"go"},
		"newsletter": true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stderr, "signup submitted") {
		t.Fatalf("expected success line, got %q", stderr)
	}
}

func TestFill_OpenAPIJSONGolden(t *testing.T) {
	driver := &testsupport.ScriptedDriver{
		Inputs:   []string{"30", "ann@example.com", "go", "Hello"},
		Selects:  []int{1},
		Confirms: []bool{true, true, false},
	}

	stdout, stderr, err := runCmd(t, driver, "fill", "--openapi", articleFixture, "--operation", "createArticle")
	if err != nil {
		t.Fatalf("fill: %v (stderr: %s)", err, stderr)
	}

	var got any
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	golden := "testdata/article.golden.json"
	testsupport.WriteGolden(t, golden, got)
	if diff := testsupport.CompareGolden(testsupport.MustReadGoldenJSON(t, golden), got); diff != "" {
		t.Fatalf("golden mismatch (-want +got):\n%s", diff)
	}
	if !driver.Consumed() {
		t.Fatalf("not all scripted answers were used")
	}
}

func TestFill_WritesOutputFile(t *testing.T) {
	driver := &testsupport.ScriptedDriver{
		Inputs:   []string{"Al", "", "go"},
		Selects:  []int{1},
		Confirms: []bool{true, true, false, false},
	}
	out := filepath.Join(t.TempDir(), "values.json")

	stdout, stderr, err := runCmd(t, driver, "fill", "-d", signupFixture, "--out", out)
	if err != nil {
		t.Fatalf("fill: %v (stderr: %s)", err, stderr)
	}
	if stdout != "" {
		t.Fatalf("stdout should be empty when --out is set, got %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if diff := cmp.Diff([]any{"news", "go"}, got["tags"]); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_SourceFlagErrors(t *testing.T) {
	cases := map[string][]string{
		"one of --definition or --openapi is required": {"fill"},
		"not both": {"fill", "-d", signupFixture, "--openapi", articleFixture},
		"--operation is required":                      {"fill", "--openapi", articleFixture},
	}
	for want, args := range cases {
		_, _, err := runCmd(t, &testsupport.ScriptedDriver{}, args...)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%v: expected %q, got %v", args, want, err)
		}
	}
}

func TestPrintFieldErrors(t *testing.T) {
	var buf bytes.Buffer
	printFieldErrors(&buf, map[string]string{"b": "b required", "a": "a required"})
	out := buf.String()
	if !strings.Contains(out, "Form has errors:") {
		t.Fatalf("missing heading:\n%s", out)
	}
	if strings.Index(out, "a: a required") > strings.Index(out, "b: b required") {
		t.Fatalf("fields should be sorted:\n%s", out)
	}
}

func TestInspect(t *testing.T) {
	stdout, _, err := runCmd(t, &testsupport.ScriptedDriver{}, "inspect", "-d", signupFixture)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{
		"signup",
		"user.name (text) rules=required,minLength",
		"plan (select) options=free|pro",
		"tags (list)",
		"initial values:",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, stdout)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(newViper(), "")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	path := filepath.Join(t.TempDir(), "formstate.yaml")
	if err := os.WriteFile(path, []byte("output: YAML\nmax_attempts: 5\nsanitize: false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = loadConfig(newViper(), path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	want := Config{Output: "yaml", LogLevel: "info", MaxAttempts: 5, Sanitize: false}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("file config mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("FORMSTATE_OUTPUT", "xml")
	if _, err := loadConfig(newViper(), ""); err == nil {
		t.Fatalf("expected unsupported output error from env")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("hello")
	if !strings.Contains(buf.String(), "formstate") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
	if _, err := newLogger(&buf, "loud"); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
