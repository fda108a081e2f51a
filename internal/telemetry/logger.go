package telemetry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// sinks is the output shared by a logger and everything derived from it
// via With, so a file added later is seen by all of them.
type sinks struct {
	mu    sync.Mutex
	out   []io.Writer
	files []*os.File
}

func (s *sinks) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.out {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Logger is a thin wrapper over log/slog with optional file output.
type Logger struct {
	inner *slog.Logger
	sinks *sinks
}

// NewLogger creates a text logger on stderr. Verbose lowers the level to debug.
func NewLogger(verbose bool) *Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	return NewLoggerTo(os.Stderr, level, "text")
}

// NewLoggerTo creates a logger on w. Level is one of debug, info, warn or
// error; format is text or json.
func NewLoggerTo(w io.Writer, level, format string) *Logger {
	s := &sinks{out: []io.Writer{w}}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(s, opts)
	} else {
		h = slog.NewTextHandler(s, opts)
	}
	return &Logger{inner: slog.New(h), sinks: s}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{inner: slog.New(slog.DiscardHandler), sinks: &sinks{}}
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithFile appends every record to path as well, creating parent dirs.
func (l *Logger) WithFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	l.sinks.mu.Lock()
	l.sinks.out = append(l.sinks.out, f)
	l.sinks.files = append(l.sinks.files, f)
	l.sinks.mu.Unlock()
	return nil
}

// With returns a logger that adds keyvals to every record.
func (l *Logger) With(keyvals ...any) *Logger {
	if len(keyvals) == 0 {
		return l
	}
	return &Logger{inner: l.inner.With(keyvals...), sinks: l.sinks}
}

// Close closes the files opened by WithFile. The logger keeps writing to
// its primary output afterwards.
func (l *Logger) Close() error {
	l.sinks.mu.Lock()
	defer l.sinks.mu.Unlock()

	var errs []error
	for _, f := range l.sinks.files {
		errs = append(errs, f.Close())
	}
	l.sinks.files = nil
	if len(l.sinks.out) > 0 {
		l.sinks.out = l.sinks.out[:1]
	}
	return errors.Join(errs...)
}

// Slog exposes the underlying logger.
func (l *Logger) Slog() *slog.Logger { return l.inner }

func (l *Logger) Debug(msg string, keyvals ...any) { l.inner.Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.inner.Info(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.inner.Warn(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.inner.Error(msg, keyvals...) }
