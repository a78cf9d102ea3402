// Package logs builds the process-wide slog.Logger from configuration.
package logs

import (
	"log/slog"
	"os"
	"strings"
)

// GetLoggerFromString maps a LOG_LEVEL string (DEBUG, INFO, WARN, ERROR) to
// a text-handler logger. Unknown values fall back to INFO rather than
// failing startup.
func GetLoggerFromString(level string) *slog.Logger {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return GetLoggerFromLevel(slog.LevelDebug)
	case "WARN", "WARNING":
		return GetLoggerFromLevel(slog.LevelWarn)
	case "ERROR":
		return GetLoggerFromLevel(slog.LevelError)
	default:
		return GetLoggerFromLevel(slog.LevelInfo)
	}
}

func GetLoggerFromLevel(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
