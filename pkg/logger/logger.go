// Package logger wraps log/slog with a process-wide logger and per-request
// loggers carried on the context.
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order placed", "order_id", id)
//	// → level=INFO msg="order placed" request_id=a1b2c3d4 order_id=...
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/usgears/storefront/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newConsoleHandler(os.Stdout))
	slog.SetDefault(L)
}

func newConsoleHandler(w io.Writer) slog.Handler {
	if config.IsProduction() {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Tee replaces the global logger with one that writes to the console and to
// every extra handler. Used to attach the Mongo sink after the database is up.
func Tee(extra ...slog.Handler) {
	hs := append([]slog.Handler{newConsoleHandler(os.Stdout)}, extra...)
	L = slog.New(NewMultiHandler(hs...))
	slog.SetDefault(L)
}

type ctxKey struct{}

// WithCtx returns the request logger stored by the Logger middleware, or the
// base logger when none is present.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// With adds attributes to the logger already carried by ctx.
func With(ctx context.Context, args ...any) context.Context {
	return InjectLogger(ctx, WithCtx(ctx).With(args...))
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
