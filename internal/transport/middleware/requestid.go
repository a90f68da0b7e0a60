package middleware

import (
	"context"
	"net/http"

	"github.com/Abhinavnist/payment-system-backend/pkg/logger"

	"github.com/google/uuid"
)

type ctxKey int

const requestIDKey ctxKey = iota

// GetRequestID returns the request ID stored by the RequestID middleware,
// or an empty string when none is set.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		// inject into context
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = logger.With(ctx, "requestID", requestID)

		// propagate back to response
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
