// Package logging builds zerolog loggers from configuration.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config controls logger construction.
type Config struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
	Output string `mapstructure:"output" validate:"omitempty,oneof=stdout stderr"`
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// New creates a logger from cfg. An unknown level falls back to info.
func New(cfg Config) zerolog.Logger {
	cfg.ApplyDefaults()
	return NewWithWriter(cfg, outputWriter(cfg.Output))
}

// NewWithWriter is like New but writes to w regardless of cfg.Output.
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.ToLower(cfg.Format) == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	default:
		return os.Stderr
	}
}
