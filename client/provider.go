package client

import (
	"fmt"
	"strings"

	"github.com/brensch/snekpilot/autopilot"
)

// Provider kinds understood by New.
const (
	KindGroq      = "groq"
	KindOpenAI    = "openai"
	KindOllama    = "ollama"
	KindGemini    = "gemini"
	KindWebhook   = "webhook"
	KindWebsocket = "websocket"
	KindGreedy    = "greedy"
)

// New builds the provider described by cfg.
func New(cfg Config) (autopilot.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindGroq, KindOpenAI:
		return NewGroqClient(cfg), nil
	case KindOllama:
		return NewOllamaClient(cfg), nil
	case KindGemini:
		return NewGeminiClient(cfg), nil
	case KindWebhook:
		return NewWebhookClient(cfg)
	case KindWebsocket:
		return NewWebsocketClient(cfg)
	case KindGreedy:
		return Greedy{}, nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// NeedsToken reports whether cfg describes a hosted provider that cannot
// work without an API token. An openai-kind entry pointed at a custom URL
// is assumed to be a local server.
func NeedsToken(cfg Config) bool {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindGroq, KindGemini:
		return true
	case KindOpenAI:
		return cfg.URL == "" || cfg.URL == DefaultGroqURL
	case "":
		return cfg.URL == DefaultGroqURL
	}
	return false
}
