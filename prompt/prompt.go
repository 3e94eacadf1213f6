// Package prompt manages YAML prompt templates for test-case generation.
//
// Templates live in a YAML file keyed by name, each carrying a body with
// {variable} placeholders, a required-variable list, and per-variable
// defaults. A selection rule set in the same file picks a template from the
// requirement's heading and identifier when the caller does not name one.
// A built-in template set is embedded in the binary so the tool works
// without any external files.
//
// Usage:
//
//	store, err := prompt.New("prompt_config.yaml", nil)
//	text, err := store.Render("", map[string]string{
//	    "heading":        "Door Control",
//	    "requirement_id": "SR-DOOR-001",
//	    ...
//	})
package prompt

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is the prompt-store configuration file.
type Config struct {
	FilePaths struct {
		TestGenerationPrompts string `yaml:"test_generation_prompts"`
	} `yaml:"file_paths"`
	Defaults struct {
		TemplateSelection string `yaml:"template_selection"`
	} `yaml:"defaults"`
	AutoSelection struct {
		Enabled           bool `yaml:"enabled"`
		FallbackToDefault bool `yaml:"fallback_to_default"`
	} `yaml:"auto_selection"`
}

func (c *Config) defaults() {
	if c.Defaults.TemplateSelection == "" {
		c.Defaults.TemplateSelection = "automotive_default"
	}
}

// Template is one named prompt template.
type Template struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
	Variables   struct {
		Required []string          `yaml:"required"`
		Defaults map[string]string `yaml:"defaults"`
	} `yaml:"variables"`
	Template string `yaml:"template"`
}

// keywordRule selects a template when the heading contains any keyword.
type keywordRule struct {
	Keywords []string `yaml:"keywords"`
	Template string   `yaml:"template"`
}

// patternRule selects a template when the requirement ID contains any
// pattern as a substring.
type patternRule struct {
	Patterns []string `yaml:"patterns"`
	Template string   `yaml:"template"`
}

// selectionRules drive auto-selection, loaded from the template file.
type selectionRules struct {
	HeadingKeywords map[string]keywordRule `yaml:"heading_keywords"`
	IDPatterns      map[string]patternRule `yaml:"requirement_id_patterns"`
	DefaultTemplate string                 `yaml:"default_template"`
}

// templateFile is the on-disk (and embedded) template file layout.
type templateFile struct {
	Templates map[string]Template `yaml:"test_generation_prompts"`
	Selection selectionRules      `yaml:"prompt_selection"`
}

// Store holds the loaded templates and selection rules. Safe for concurrent
// use; Reload swaps the whole set atomically.
type Store struct {
	configPath string
	logger     *slog.Logger

	mu        sync.RWMutex
	cfg       Config
	templates map[string]Template
	rules     selectionRules
	last      string
}

// New loads the prompt store. A missing config file falls back to built-in
// defaults, and a missing or unreadable template file falls back to the
// embedded template set, so New fails only on a malformed file that does
// exist.
func New(configPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{configPath: configPath, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the config and template files.
func (s *Store) Reload() error {
	var cfg Config
	cfg.AutoSelection.Enabled = true
	cfg.AutoSelection.FallbackToDefault = true

	if s.configPath != "" {
		data, err := os.ReadFile(s.configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("parse prompt config %s: %w", s.configPath, err)
			}
		case os.IsNotExist(err):
			s.logger.Debug("prompt config not found, using defaults", "path", s.configPath)
		default:
			return fmt.Errorf("read prompt config %s: %w", s.configPath, err)
		}
	}
	cfg.defaults()

	tf, err := loadTemplateFile(cfg.FilePaths.TestGenerationPrompts, s.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.templates = tf.Templates
	s.rules = tf.Selection
	s.logger.Debug("prompt templates loaded", "count", len(tf.Templates))
	return nil
}

// loadTemplateFile reads the template file at path, falling back to the
// embedded set when path is empty or the file does not exist.
func loadTemplateFile(path string, logger *slog.Logger) (*templateFile, error) {
	data := embeddedTemplates
	if path != "" {
		fileData, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = fileData
		case os.IsNotExist(err):
			logger.Debug("template file not found, using embedded set", "path", path)
		default:
			return nil, fmt.Errorf("read templates %s: %w", path, err)
		}
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	if len(tf.Templates) == 0 {
		return nil, fmt.Errorf("no templates in %s", path)
	}
	return &tf, nil
}

// Render produces the prompt for the given template name and variables.
// An empty name auto-selects from the heading and requirement_id variables;
// an unknown name falls back to the default template. Required variables
// must be present; per-template defaults fill variables that are absent,
// empty, or the literal "None".
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = s.autoSelect(vars)
		s.logger.Debug("auto-selected template", "template", name)
	}

	tmpl, ok := s.templates[name]
	if !ok {
		s.logger.Warn("template not found, using default",
			"template", name, "default", s.cfg.Defaults.TemplateSelection)
		name = s.cfg.Defaults.TemplateSelection
		tmpl, ok = s.templates[name]
		if !ok {
			return "", fmt.Errorf("no template available: %s", name)
		}
	}
	s.last = name

	var missing []string
	for _, v := range tmpl.Variables.Required {
		if _, ok := vars[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("template %s: missing required variables: %s",
			name, strings.Join(missing, ", "))
	}

	final := make(map[string]string, len(vars))
	for k, v := range vars {
		final[k] = v
	}
	for k, def := range tmpl.Variables.Defaults {
		if v, ok := final[k]; !ok || v == "" || v == "None" {
			final[k] = def
		}
	}

	rendered := tmpl.Template
	for k, v := range final {
		rendered = strings.ReplaceAll(rendered, "{"+k+"}", v)
	}
	return rendered, nil
}

// autoSelect picks a template from the heading and requirement ID. Rule
// categories are walked in sorted name order so selection is deterministic.
// Callers hold s.mu.
func (s *Store) autoSelect(vars map[string]string) string {
	if !s.cfg.AutoSelection.Enabled {
		return s.cfg.Defaults.TemplateSelection
	}

	heading := strings.ToLower(vars["heading"])
	reqID := strings.ToUpper(vars["requirement_id"])

	for _, category := range sortedKeys(s.rules.HeadingKeywords) {
		rule := s.rules.HeadingKeywords[category]
		for _, kw := range rule.Keywords {
			if strings.Contains(heading, strings.ToLower(kw)) {
				if _, ok := s.templates[rule.Template]; ok {
					return rule.Template
				}
			}
		}
	}

	for _, category := range sortedKeys(s.rules.IDPatterns) {
		rule := s.rules.IDPatterns[category]
		for _, p := range rule.Patterns {
			if strings.Contains(reqID, p) {
				if _, ok := s.templates[rule.Template]; ok {
					return rule.Template
				}
			}
		}
	}

	if s.rules.DefaultTemplate != "" {
		return s.rules.DefaultTemplate
	}
	return s.cfg.Defaults.TemplateSelection
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List returns the loaded template names, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.templates)
}

// Info returns the template with the given name.
func (s *Store) Info(name string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	return t, ok
}

// LastSelected returns the name of the template the last Render used, or ""
// if Render has not run yet.
func (s *Store) LastSelected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
