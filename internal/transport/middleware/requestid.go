package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/instrumentalist-payouts/pkg/logger"
)

const TraceHeader = "X-Trace-ID"

// TraceID tags the request logger with the caller's trace id, minting one when absent.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set(TraceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
