// Package bindifflog is the structured logging adapter used by
// diffstore. It
// mirrors the teacher's utils.Logger shape: an slog-backed interface
// plus *Ctx variants that pick up fields stashed on the context.
package bindifflog

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the logging surface bindiff components depend on. A nil
// Logger is never passed around directly; call Or(nil) to get a safe
// default.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugCtx(ctx context.Context, msg string, args ...any)
	InfoCtx(ctx context.Context, msg string, args ...any)
	WarnCtx(ctx context.Context, msg string, args ...any)
	ErrorCtx(ctx context.Context, msg string, args ...any)
}

const prefix = "[bin-diff] "

type slogLogger struct {
	logger *slog.Logger
}

// New builds a Logger backed by slog's text handler at level.
func New(level slog.Level) Logger {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// Or returns l if non-nil, else a discard logger. Components accepting
// an optional bindifflog.Logger in their Options call this once at
// construction so call sites never need a nil check.
func Or(l Logger) Logger {
	if l != nil {
		return l
	}
	return discard{}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.logger.Debug(prefix+msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.logger.Info(prefix+msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.logger.Warn(prefix+msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.logger.Error(prefix+msg, args...) }

type defaultArgsKey struct{}

func getDefaultArgs(ctx context.Context) []any {
	args, _ := ctx.Value(defaultArgsKey{}).([]any)
	return args
}

// WithDefaultArgs stashes args on ctx so every subsequent *Ctx log call
// made with that context includes them, without each call site having
// to thread them through by hand.
func WithDefaultArgs(ctx context.Context, args ...any) context.Context {
	merged := append(append([]any{}, getDefaultArgs(ctx)...), args...)
	return context.WithValue(ctx, defaultArgsKey{}, merged)
}

func (s *slogLogger) DebugCtx(ctx context.Context, msg string, args ...any) {
	s.logger.Debug(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (s *slogLogger) InfoCtx(ctx context.Context, msg string, args ...any) {
	s.logger.Info(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (s *slogLogger) WarnCtx(ctx context.Context, msg string, args ...any) {
	s.logger.Warn(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

func (s *slogLogger) ErrorCtx(ctx context.Context, msg string, args ...any) {
	s.logger.Error(prefix+msg, append(args, getDefaultArgs(ctx)...)...)
}

// discard silently drops everything: the nil-safe fallback.
type discard struct{}

func (discard) Debug(string, ...any)                            {}
func (discard) Info(string, ...any)                             {}
func (discard) Warn(string, ...any)                             {}
func (discard) Error(string, ...any)                            {}
func (discard) DebugCtx(context.Context, string, ...any)        {}
func (discard) InfoCtx(context.Context, string, ...any)         {}
func (discard) WarnCtx(context.Context, string, ...any)         {}
func (discard) ErrorCtx(context.Context, string, ...any)        {}
