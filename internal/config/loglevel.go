package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// LogLevel is the configured slog level.
type LogLevel = slog.Level

func parseLogLevel(value string) (LogLevel, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", value)
	}
}
