// Package logging holds the *slog.Logger used by the building pipeline.
package logging

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// SetLogger installs the logger used by the pipeline.
// Passing nil restores the default, which discards everything.
func SetLogger(sl *slog.Logger) {
	if sl == nil {
		sl = slog.New(slog.DiscardHandler)
	}
	logger.Store(sl)
}

// Logger returns the installed logger, or a discarding logger if none was set.
// Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	l := slog.New(slog.DiscardHandler)
	logger.CompareAndSwap(nil, l)
	return logger.Load()
}
