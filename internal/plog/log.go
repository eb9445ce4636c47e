// Package plog carries a logger through a context.Context, the same way
// chromiumos/tast's testing package exposes ContextLog/ContextLogf.
package plog

import (
	"context"
	"fmt"
	"log"
)

type ctxKey struct{}

// Logger is the minimal sink the framework writes structured lines to.
type Logger interface {
	Log(msg string)
}

type stdLogger struct {
	l *log.Logger
}

func (s *stdLogger) Log(msg string) { s.l.Print(msg) }

// NewContext returns a context carrying logger, for use by Infof/Warnf/Errorf.
func NewContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func fromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return &stdLogger{l: log.Default()}
}

// Infof logs an informational line, e.g. an apply cycle starting or ending.
func Infof(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Log("INFO: " + fmt.Sprintf(format, args...))
}

// Warnf logs a recoverable anomaly, e.g. a sync error that did not abort the cycle.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Log("WARN: " + fmt.Sprintf(format, args...))
}

// Errorf logs a caller-facing failure after it has already been returned as an error.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Log("ERROR: " + fmt.Sprintf(format, args...))
}
