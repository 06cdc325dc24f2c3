// Package logx is the injected logging sink for the adapter core. The
// default implementation wraps log/slog, matching the teacher's own
// documented convention of handing callers an io.Writer meant for
// slog.NewTextHandler (see connect.LogWriter) rather than inventing a
// bespoke logging format.
package logx

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the sink ClaService and the member runtimes write through.
// Hosts that already run a structured logger can adapt it to this
// interface in a few lines; the default NewSlog/Default implementations
// cover everything this package needs on its own.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlog wraps a slog.Logger writing text-formatted records to w.
func NewSlog(w io.Writer) Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(w, nil))}
}

// Default returns the slog-backed logger writing to os.Stdout, used when a
// host supplies no Logger in cla.Config.
func Default() Logger {
	return NewSlog(os.Stdout)
}

func (s *slogLogger) Debug(msg string, kv ...any) { s.l.Debug(msg, kv...) }
func (s *slogLogger) Info(msg string, kv ...any)  { s.l.Info(msg, kv...) }
func (s *slogLogger) Warn(msg string, kv ...any)  { s.l.Warn(msg, kv...) }
func (s *slogLogger) Error(msg string, kv ...any) { s.l.Error(msg, kv...) }

type noopLogger struct{}

// Noop discards everything; useful in tests that don't want log noise.
func Noop() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
