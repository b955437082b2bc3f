package logging

import (
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug and only shows pion's packet-level chatter.
const LevelTrace = slog.Level(-8)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values fall back to error.
func ParseLevel(l string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "trace":
		return LevelTrace
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func Init() {
	level := slog.LevelError // default: production only shows errors

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = ParseLevel(l)
	}
	Setup(level)
}

// Setup replaces the default logger with a text handler on stderr.
func Setup(level slog.Level) {
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
