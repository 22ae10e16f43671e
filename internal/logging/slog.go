// file: internal/logging/slog.go
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Level is a log severity.
type Level = slog.Level

// Supported levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var level = new(slog.LevelVar)

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger to Logger.
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) WithContext(_ context.Context) Logger { return s }

func (s *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{l: s.l.With(key, value)}
}

// InitLogging installs a JSON logger writing to w as the default logger.
func InitLogging(lvl Level, w io.Writer) {
	level.Set(lvl)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	SetDefaultLogger(NewSlogLogger(slog.New(h)))
}

// SetupDefaultLogger parses a level name and installs a JSON logger on stderr.
// Stdout is reserved for protocol traffic.
func SetupDefaultLogger(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	InitLogging(lvl, os.Stderr)
	return nil
}

// ParseLevel converts debug, info, warn or error to a Level. Empty means info.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Newf("unknown log level %q", name)
	}
}

// SetLevel changes the level of loggers created by InitLogging.
func SetLevel(lvl Level) {
	level.Set(lvl)
}

// IsDebugEnabled reports whether debug messages are currently emitted.
func IsDebugEnabled() bool {
	return level.Level() <= LevelDebug
}
