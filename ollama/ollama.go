// Package ollama provides a generation client for a local Ollama server.
//
// It decouples prompt completion from the extraction pipeline so the
// orchestrator can run against any served model, or against nothing at all
// when no endpoint is configured.
//
// Usage:
//
//	gen := ollama.New(ollama.Config{
//	    Endpoint: "http://127.0.0.1:11434",
//	    Model:    "llama3.1:8b",
//	})
//	out, err := gen.Generate(ctx, "Decompose the following logic table ...")
package ollama

import (
	"context"
	"log/slog"
	"time"
)

// Generator completes prompts with a language model.
type Generator interface {
	// Generate returns the model's completion for a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Models lists the model names the server currently serves.
	Models(ctx context.Context) ([]string, error)

	// Model returns the configured model name.
	Model() string
}

// Config configures the generation client.
type Config struct {
	// Endpoint is the base URL of the Ollama server
	// (e.g. "http://127.0.0.1:11434"). If empty, a noop generator is
	// returned.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the model name sent with every request (e.g. "llama3.1:8b").
	Model string `json:"model" yaml:"model"`

	// Temperature is the sampling temperature. 0 keeps generation
	// deterministic, which is what test-case decomposition wants.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Format constrains the response shape. "json" forces valid JSON
	// output; empty leaves the model free.
	Format string `json:"format" yaml:"format"`

	// Timeout per request. Local models are slow; default 600s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 600 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates a Generator from config. If Endpoint is empty, returns a noop
// generator that produces an empty test-case envelope and serves no models.
func New(cfg Config) Generator {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return &noopGenerator{model: cfg.Model}
	}
	return newClient(cfg)
}

// noopGenerator answers without a server — useful for testing and dry runs.
type noopGenerator struct {
	model string
}

func (n *noopGenerator) Generate(_ context.Context, _ string) (string, error) {
	return `{"test_cases": []}`, nil
}

func (n *noopGenerator) Models(_ context.Context) ([]string, error) {
	return nil, nil
}

func (n *noopGenerator) Model() string { return n.model }
