// Package logger provides the transport core's logging, keyed by
// subsystem name and level-gated by the IGN_VERBOSE environment
// variable (spec §6): 0 logs errors only, 1 adds informational
// messages, 2 and above adds debug detail.
package logger

import (
	"log/slog"
	"os"
	"strconv"
	"sync"
)

var (
	levelOnce sync.Once
	level     slog.Level
)

func verbosity() slog.Level {
	levelOnce.Do(func() {
		level = slog.LevelError
		v, err := strconv.Atoi(os.Getenv("IGN_VERBOSE"))
		if err != nil {
			return
		}
		switch {
		case v <= 0:
			level = slog.LevelError
		case v == 1:
			level = slog.LevelInfo
		default:
			level = slog.LevelDebug
		}
	})
	return level
}

// Logger returns a subsystem-scoped logger. Subsystem names match the
// package that owns them: "shared", "socket", "discovery", "topicstore",
// and so on.
func Logger(subsystem string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: verbosity(),
	})
	return slog.New(handler).With("subsystem", subsystem)
}
