// Package logging sets up the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New builds the tinted stderr logger used by every command. Level names
// follow slog: debug, info, warn, error; anything else means info.
func New(level string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		NoColor:    runtime.GOOS == "windows" || os.Getenv("NO_COLOR") != "",
		Level:      ParseLevel(level),
		TimeFormat: time.Kitchen,
	}))
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "err", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
