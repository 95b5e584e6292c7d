// Package logging configures the slog logger of dsdl-catalyst and the small
// Logger interface the pipeline logs through.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options configures New.
type Options struct {
	// Verbose enables debug records.
	Verbose bool
	// JSON selects the JSON handler instead of the text handler.
	JSON bool
	// Writer receives the records; nil means os.Stderr.
	Writer io.Writer
}

// New returns a slog.Logger configured by opts.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// Logger is the logging surface of pipeline stages.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// SlogAdapter implements Logger on top of a *slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }

func (s *SlogAdapter) Info(msg string, args ...any) { s.logger.Info(msg, args...) }

func (s *SlogAdapter) Warn(msg string, args ...any) { s.logger.Warn(msg, args...) }

func (s *SlogAdapter) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

// With returns a Logger that adds args to every record.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

// NopLogger discards everything.
type NopLogger struct{}

// NewNopLogger returns a NopLogger.
func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}

func (*NopLogger) Info(string, ...any) {}

func (*NopLogger) Warn(string, ...any) {}

func (*NopLogger) Error(string, ...any) {}

func (n *NopLogger) With(...any) Logger { return n }

// Slog returns the *slog.Logger behind l so it can be handed to packages
// that take one. Loggers not backed by slog yield a discarding logger.
func Slog(l Logger) *slog.Logger {
	if a, ok := l.(*SlogAdapter); ok && a.logger != nil {
		return a.logger
	}
	return slog.New(slog.DiscardHandler)
}

var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*NopLogger)(nil)
)
