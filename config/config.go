// Package config loads provider definitions from a YAML file and builds
// the providers the autopilot worker serves.
//
// A file looks like:
//
//	providers:
//	  groq:
//	    kind: groq
//	    token: ${GROQ_API_KEY}
//	  local:
//	    kind: ollama
//	    model: llama3
//	  policy:
//	    kind: onnx
//	    model: models/snake.onnx
//
// The older layout with top-level groq_client and ollama_client entries is
// still read.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/brensch/snekpilot/autopilot"
	"github.com/brensch/snekpilot/client"
	"github.com/brensch/snekpilot/game"
	"github.com/brensch/snekpilot/inference"
)

// KindOnnx selects the local policy network.
const KindOnnx = "onnx"

// DefaultPath is where the file is looked for when no path is given.
const DefaultPath = "config.yaml"

// Provider is one entry of the providers map.
type Provider struct {
	client.Config `yaml:",inline"`
	// Scale is only used by onnx providers.
	Scale float32 `yaml:"scale"`
}

type File struct {
	Providers map[string]Provider `yaml:"providers"`

	GroqClient   *client.Config `yaml:"groq_client"`
	OllamaClient *client.Config `yaml:"ollama_client"`
}

// Load reads and normalises the file at path. A missing file is not an
// error: the result then holds only the greedy provider.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Parse(nil)
	}
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a config file body.
func Parse(data []byte) (File, error) {
	var f File
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if f.Providers == nil {
		f.Providers = map[string]Provider{}
	}
	if f.GroqClient != nil {
		legacy := *f.GroqClient
		legacy.Kind = client.KindGroq
		if _, ok := f.Providers[client.KindGroq]; !ok {
			f.Providers[client.KindGroq] = Provider{Config: legacy}
		}
		f.GroqClient = nil
	}
	if f.OllamaClient != nil {
		legacy := *f.OllamaClient
		legacy.Kind = client.KindOllama
		if _, ok := f.Providers[client.KindOllama]; !ok {
			f.Providers[client.KindOllama] = Provider{Config: legacy}
		}
		f.OllamaClient = nil
	}
	if _, ok := f.Providers[client.KindGreedy]; !ok {
		f.Providers[client.KindGreedy] = Provider{Config: client.Config{Kind: client.KindGreedy}}
	}

	for name, p := range f.Providers {
		if p.Kind == "" {
			// The entry name doubles as the kind: "groq:", "ollama:".
			p.Kind = name
		}
		p.Token = os.ExpandEnv(p.Token)
		p.URL = os.ExpandEnv(p.URL)
		f.Providers[name] = p
	}
	return f, nil
}

// Names returns the provider names in menu order: alphabetical, greedy last.
func (f File) Names() []game.ProviderID {
	names := make([]string, 0, len(f.Providers))
	for name := range f.Providers {
		if name != client.KindGreedy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := f.Providers[client.KindGreedy]; ok {
		names = append(names, client.KindGreedy)
	}
	ids := make([]game.ProviderID, len(names))
	for i, n := range names {
		ids[i] = game.ProviderID(n)
	}
	return ids
}

// Registry is the set of providers built from a File.
type Registry struct {
	Providers map[game.ProviderID]autopilot.Provider
	// Order lists the providers that were built, in menu order.
	Order   []game.ProviderID
	closers []io.Closer
}

// Build constructs every provider in f. Entries that fail to build are
// logged and left out so one bad entry does not disable the rest.
func Build(f File, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	reg := &Registry{Providers: map[game.ProviderID]autopilot.Provider{}}
	for _, id := range f.Names() {
		p, err := build(f.Providers[string(id)], logger.With("provider", string(id)))
		if err != nil {
			logger.Warn("provider disabled", "provider", string(id), "error", err)
			continue
		}
		if cfg := f.Providers[string(id)]; client.NeedsToken(cfg.Config) && cfg.Token == "" {
			logger.Warn("provider has no token, requests will fail", "provider", string(id), "kind", cfg.Kind)
		}
		reg.Providers[id] = p
		reg.Order = append(reg.Order, id)
		if c, ok := p.(io.Closer); ok {
			reg.closers = append(reg.closers, c)
		}
	}
	return reg
}

func build(p Provider, logger *slog.Logger) (autopilot.Provider, error) {
	if strings.EqualFold(p.Kind, KindOnnx) {
		return inference.NewOnnxClient(inference.Config{ModelPath: p.Model, Scale: p.Scale}, logger)
	}
	return client.New(p.Config)
}

// Close releases providers that hold connections or sessions.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
