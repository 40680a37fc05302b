package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config represents logging configuration.
type Config struct {
	Level     string    `json:"level" mapstructure:"level"`
	Format    string    `json:"format" mapstructure:"format"`
	AddSource bool      `json:"add_source" mapstructure:"add_source"`
	Output    io.Writer `json:"-" mapstructure:"-"`
}

// DefaultConfig returns default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
	}
}

// ParseLevel parses string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewFromConfig builds a logger without installing it as the default.
func NewFromConfig(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}
	return New(handler)
}

// Configure sets up the default logger based on config.
func Configure(cfg Config) {
	SetDefault(NewFromConfig(cfg))
}
