package slogx

import (
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler and the identity attrs every record carries.
type Config struct {
	Service string
	Version string
	Env     string // "dev" enables source locations
	Level   string // "debug", "info", "warn", "error"
	Format  string // "json" (default) or "text"
}

// New builds the process logger and installs it as the slog default.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.Env == "dev",
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)

	slog.SetDefault(logger)
	return logger
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
