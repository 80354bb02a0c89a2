package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// CorrelationIDHeader is the HTTP header for correlation ID
const CorrelationIDHeader = "X-Correlation-ID"

// requestIDHeader is accepted as a fallback from proxies that set it
const requestIDHeader = "X-Request-ID"

// maxCorrelationIDLength bounds client supplied ids before they reach logs
const maxCorrelationIDLength = 128

// Correlation returns a middleware that adds correlation ID to requests
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = r.Header.Get(requestIDHeader)
		}
		if correlationID == "" || len(correlationID) > maxCorrelationIDLength {
			correlationID = uuid.New().String()
		}

		w.Header().Set(CorrelationIDHeader, correlationID)

		ctx := context.WithValue(r.Context(), correlationIDKey, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID retrieves the correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFrom returns logger annotated with the request's correlation ID
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := GetCorrelationID(ctx); id != "" {
		return logger.With("correlation_id", id)
	}
	return logger
}
