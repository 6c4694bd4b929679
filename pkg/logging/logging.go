// Package logging installs the process-wide structured logger. Every
// component derives its own logger from slog.Default() with a "component"
// attribute, so this is the single place output level and format are
// decided.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config controls the global logger.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// Format is "json" or "text".
	Format string
}

// DefaultConfig returns the standard logging configuration.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

// Setup builds a logger from the configuration and installs it as the slog
// default. The writer is normally os.Stderr; tests pass their own.
func Setup(config Config, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch config.Format {
	case "", "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", config.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel maps a level name to its slog level. An empty name means info.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
