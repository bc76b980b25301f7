// Package util holds small shared helpers.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// InitLogger initializes the structured logger with JSON output.
// The level argument wins; empty falls back to the LOG_LEVEL env var.
func InitLogger(level string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))

	slog.Info("logger initialized", "level", lvl.String())
}
