package forge

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reqsmith/reqsmith/ollama"
	"github.com/reqsmith/reqsmith/testcase"
)

// Config holds all forge configuration.
type Config struct {
	// Model is the Ollama model used for generation. Overrides
	// Ollama.Model when set.
	Model string `yaml:"model"`

	// Template names the prompt template to use. Empty means
	// auto-selection per requirement.
	Template string `yaml:"template"`

	// PromptConfig is the path of the prompt-store configuration file.
	// Empty uses the embedded template set.
	PromptConfig string `yaml:"prompt_config"`

	// OutputDir receives the generated CSV files. Empty writes each CSV
	// next to its input.
	OutputDir string `yaml:"output_dir"`

	// RunDB is the path of the SQLite run ledger. Empty disables the
	// ledger.
	RunDB string `yaml:"run_db"`

	// MaxFileSize is the largest input accepted, in bytes. Default 100 MB.
	MaxFileSize int64 `yaml:"max_file_size"`

	Ollama   ollama.Config     `yaml:"ollama"`
	Defaults testcase.Defaults `yaml:"defaults"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	// Model precedence: top-level Model when set, else Ollama.Model, else
	// the built-in default. Both fields end up equal.
	switch {
	case c.Model != "":
		c.Ollama.Model = c.Model
	case c.Ollama.Model != "":
		c.Model = c.Ollama.Model
	default:
		c.Model = "llama3.1:8b"
		c.Ollama.Model = c.Model
	}
	if c.Ollama.Endpoint == "" {
		c.Ollama.Endpoint = "http://127.0.0.1:11434"
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	// Generation wants deterministic, structured answers.
	if c.Ollama.Format == "" {
		c.Ollama.Format = "json"
	}
	if c.Ollama.Logger == nil {
		c.Ollama.Logger = c.Logger
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
