package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

type loggerContextKey struct{}

// Create a JSON logger that adds tracing info to records logged with a context
func NewLogger(w io.Writer, level slog.Leveler, attrs ...slog.Attr) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewTracingLogHandler(handler.WithAttrs(attrs)))
}

func newFallbackLogger(w io.Writer) *slog.Logger {
	return NewLogger(w, slog.LevelWarn, slog.String("logger", "fallback"))
}

// Stdout is reserved for command output
var fallbackLogger = sync.OnceValue(func() *slog.Logger {
	return newFallbackLogger(os.Stderr)
})

// Get the logger stored in the context, or the shared fallback logger on stderr
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return fallbackLogger()
}

func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// Attach attrs to every record logged through the context's logger from now on
func AddMetaToContext(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	handler := FromContext(ctx).Handler().WithAttrs(attrs)
	return AddToContext(ctx, slog.New(handler))
}
