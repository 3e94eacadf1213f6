package reqif

import "log/slog"

// Config configures an Extractor. The zero value is usable.
type Config struct {
	// MaxFileSize is the largest input file accepted, in bytes.
	// Defaults to 100 MB.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Logger receives extraction diagnostics. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
