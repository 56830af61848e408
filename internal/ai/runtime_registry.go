package ai

import (
	"fmt"
	"sort"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) (Runtime, error)

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	APIKey      string
	BaseURL     string
	// HTTPTimeout limits a single request; zero defers to the context.
	HTTPTimeout time.Duration
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, Providers())
	}
	return f(cfg)
}

// Providers lists registered provider names.
func Providers() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterRuntime(ProviderGemini, func(c RuntimeConfig) (Runtime, error) {
		return NewClientWithBaseURL(c.APIKey, c.HTTPTimeout, c.BaseURL), nil
	})
	RegisterRuntime(ProviderGenAI, func(c RuntimeConfig) (Runtime, error) {
		return NewGenAIRuntime(c)
	})
}
