// FILE: lixenwraith/treeconf/logging.go
package treeconf

import (
	"io"
	"log/slog"
	"strings"
)

// LoggerConfig holds configuration for NewLogger.
type LoggerConfig struct {
	Level string
	JSON  bool
}

// NewLogger creates a slog.Logger writing to w, suitable for Config.SetLogger.
// The level is parsed from the config; defaults to INFO if invalid or empty.
func NewLogger(config LoggerConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(config.Level)}
	if config.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
