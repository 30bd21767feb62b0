package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/client"
	"github.com/brensch/snekpilot/game"
)

func TestLoadMissingFileGivesGreedy(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := f.Names(), []game.ProviderID{"greedy"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v want=%v", got, want)
	}
	reg := Build(f, nil)
	if _, ok := reg.Providers["greedy"]; !ok || len(reg.Order) != 1 {
		t.Fatalf("registry=%+v", reg)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestParseProviders(t *testing.T) {
	t.Setenv("SNAKE_TEST_TOKEN", "tok-123")
	data := []byte(`
providers:
  groq:
    token: ${SNAKE_TEST_TOKEN}
    temperature: 0.5
  local:
    kind: ollama
    model: llama3
    timeout: 30s
  agent:
    kind: websocket
    url: ws://localhost:9000/agent
`)
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	groq := f.Providers["groq"]
	if groq.Kind != client.KindGroq || groq.Token != "tok-123" || groq.Temperature != 0.5 {
		t.Fatalf("groq=%+v", groq)
	}
	if local := f.Providers["local"]; local.Kind != "ollama" || local.Timeout != 30*time.Second {
		t.Fatalf("local=%+v", local)
	}
	want := []game.ProviderID{"agent", "groq", "local", "greedy"}
	if got := f.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names=%v want=%v", got, want)
	}

	reg := Build(f, nil)
	if !reflect.DeepEqual(reg.Order, want) {
		t.Fatalf("order=%v want=%v", reg.Order, want)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestParseLegacyLayout(t *testing.T) {
	f, err := Parse([]byte(`
groq_client:
  url: https://example.invalid/v1/chat/completions
  token: abc
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	groq, ok := f.Providers["groq"]
	if !ok || groq.Kind != client.KindGroq || groq.Token != "abc" {
		t.Fatalf("providers=%+v", f.Providers)
	}
}

func TestBuildSkipsBrokenProviders(t *testing.T) {
	f, err := Parse([]byte(`
providers:
  hook:
    kind: webhook
  model:
    kind: onnx
    model: /does/not/exist.onnx
  weird:
    kind: telepathy
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := Build(f, nil)
	if got, want := reg.Order, []game.ProviderID{"greedy"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order=%v want=%v", got, want)
	}
}

func TestBuildKeepsProviderWithoutToken(t *testing.T) {
	t.Setenv("SNAKE_TEST_MISSING_KEY", "")
	f, err := Parse([]byte(`
providers:
  groq:
    token: ${SNAKE_TEST_MISSING_KEY}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := Build(f, nil)
	if got, want := reg.Order, []game.ProviderID{"groq", "greedy"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order=%v want=%v", got, want)
	}
	_, err = reg.Providers["groq"].SuggestCommands(context.Background(), autopilot.Input{})
	if !errors.Is(err, autopilot.ErrNoProvider) {
		t.Fatalf("err=%v want=%v", err, autopilot.ErrNoProvider)
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("providers: [")); err == nil {
		t.Fatalf("expected error")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("providers:\n  x: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for scalar provider")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SNAKE_TEST_INT", "42")
	t.Setenv("SNAKE_TEST_DUR", "150ms")
	t.Setenv("SNAKE_TEST_BOOL", "true")
	t.Setenv("SNAKE_TEST_BAD", "x")
	if got := EnvOrDefault("SNAKE_TEST_UNSET", "d"); got != "d" {
		t.Fatalf("EnvOrDefault=%q", got)
	}
	if got := EnvIntOrDefault("SNAKE_TEST_INT", 1); got != 42 {
		t.Fatalf("EnvIntOrDefault=%d", got)
	}
	if got := EnvIntOrDefault("SNAKE_TEST_BAD", 7); got != 7 {
		t.Fatalf("EnvIntOrDefault bad=%d", got)
	}
	if got := EnvDurationOrDefault("SNAKE_TEST_DUR", time.Second); got != 150*time.Millisecond {
		t.Fatalf("EnvDurationOrDefault=%v", got)
	}
	if got := EnvBoolOrDefault("SNAKE_TEST_BOOL", false); !got {
		t.Fatalf("EnvBoolOrDefault=%v", got)
	}
}
