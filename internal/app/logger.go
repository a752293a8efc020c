package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the process logger. Every record carries the service name
// and environment so API and worker output can share one sink.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	format, env := "pretty", "development"
	if cfg != nil {
		if lvl, err := parseLogLevel(cfg.LogLevel); err == nil {
			level = lvl
		}
		format, env = cfg.LogFormat, cfg.AppEnv
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: !cfg.IsProduction()}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", "nou"), slog.String("env", env))
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log level %q not recognised", raw)
	}
}
