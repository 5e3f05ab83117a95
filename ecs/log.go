package ecs

import (
	"log/slog"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.DiscardHandler))
}

// SetLogger sets the logger used by systems and schedulers built without an explicit
// one. A nil logger discards everything, which is also the default.
func SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaultLogger.Store(logger)
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return defaultLogger.Load()
}
