package forge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigModelPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		ollama string
		want   string
	}{
		{"top-level wins", "mistral:7b", "llama3.1:8b", "mistral:7b"},
		{"ollama model kept when top level unset", "", "qwen2.5:14b", "qwen2.5:14b"},
		{"built-in default when both unset", "", "", "llama3.1:8b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Model: tt.model}
			cfg.Ollama.Model = tt.ollama
			cfg.defaults()
			if cfg.Model != tt.want {
				t.Errorf("Model = %q, want %q", cfg.Model, tt.want)
			}
			if cfg.Ollama.Model != tt.want {
				t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, tt.want)
			}
		})
	}
}

func TestLoadConfigFileOllamaModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "ollama:\n  endpoint: http://127.0.0.1:11434\n  model: qwen2.5:14b\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.defaults()
	if cfg.Ollama.Model != "qwen2.5:14b" {
		t.Fatalf("Ollama.Model = %q, want the file's value", cfg.Ollama.Model)
	}
	if cfg.Model != "qwen2.5:14b" {
		t.Fatalf("Model = %q, want the file's value", cfg.Model)
	}
}
