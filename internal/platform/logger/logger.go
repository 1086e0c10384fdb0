package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the process logger: JSON to stdout at the configured level.
// Handlers, services, and consumers receive it by injection; nothing logs
// through a package-level default.
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
