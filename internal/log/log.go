// Package log configures structured logging for the conversation
// pipeline. Each daemon initializes one process-wide slog logger and
// derives loggers from it; records carry a "daemon" key at the root and
// a "component" key per subsystem, so one aggregated stream from all
// four daemons stays attributable.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// ParseLevel maps a level name to its slog level. Unknown names fall
// back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// Init initializes the process logger at the given level. Output is
// JSON when AKARI_ENV=production, human-readable text otherwise. Only
// the first call takes effect.
func Init(level string) {
	once.Do(func() {
		opts := &slog.HandlerOptions{Level: ParseLevel(level)}

		if os.Getenv("AKARI_ENV") == "production" {
			logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
		} else {
			logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
		}

		slog.SetDefault(logger)
	})
}

// L returns the process logger, initializing it at info if Init has not
// run yet.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Daemon returns the root logger for one of the pipeline daemons.
func Daemon(name string) *slog.Logger {
	return L().With("daemon", name)
}

// Component returns a subsystem logger under the process logger.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}
