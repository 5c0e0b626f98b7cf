package log

import "sync/atomic"

var defaultLogger atomic.Pointer[Logger]

// SetDefault installs the logger the CLI layer falls back to. Library
// packages take a *Logger explicitly.
func SetDefault(logger *Logger) { defaultLogger.Store(logger) }

// DefaultLogger returns the installed logger, or installs Default() on first use
func DefaultLogger() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	defaultLogger.CompareAndSwap(nil, Default())
	return defaultLogger.Load()
}
