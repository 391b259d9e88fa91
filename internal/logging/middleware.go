package logging

import (
	"log/slog"
	"net/http"
	"time"
)

type RoundTripperFunc func(r *http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Log every outgoing request using the logger in the request context
func NewRequestLoggerMiddleware(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		ctx := r.Context()
		logger := FromContext(ctx).With(
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		start := time.Now()
		resp, err := next.RoundTrip(r)
		duration := time.Since(start)

		if err != nil {
			logger.WarnContext(ctx, "Request failed", "error", err.Error(), "duration", duration)
			return resp, err
		}

		logger.DebugContext(ctx, "Request completed", "status", resp.StatusCode, "duration", duration)
		return resp, nil
	})
}
