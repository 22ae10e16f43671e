// file: internal/logging/logger.go

// Package logging is the structured logger shared by the toolwire client, server and
// transports. Components log through the Logger interface; the process installs one
// slog-backed default at startup and everything else derives from it.
package logging

import (
	"context"
	"sync"
)

// Logger is a leveled, structured logger. Arguments after the message alternate
// key and value. Messages are sentences: capitalised and ending in a period.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// WithContext attaches request-scoped values carried by ctx.
	WithContext(ctx context.Context) Logger

	// WithField returns a child logger that adds key=value to every record.
	WithField(key string, value any) Logger
}

// discard drops every record. It stands in wherever a component was given no logger.
type discard struct{}

func (discard) Debug(string, ...any)                 {}
func (discard) Info(string, ...any)                  {}
func (discard) Warn(string, ...any)                  {}
func (discard) Error(string, ...any)                 {}
func (d discard) WithContext(context.Context) Logger { return d }
func (d discard) WithField(string, any) Logger       { return d }

var noop Logger = discard{}

// GetNoopLogger returns a logger that discards everything.
func GetNoopLogger() Logger {
	return noop
}

// OrNoop returns l, or the discarding logger when l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return noop
	}
	return l
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = noop
)

// SetDefaultLogger replaces the process-wide logger. A nil logger is ignored.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetLogger returns the default logger tagged with component=name. Call it after
// SetupDefaultLogger; a logger taken earlier keeps discarding.
func GetLogger(name string) Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	return l.WithField("component", name)
}
