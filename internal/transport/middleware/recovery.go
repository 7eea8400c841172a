package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/go-chi/chi/middleware"
)

// RecoveryMiddleware answers a handler panic with a generic internal error. The
// panic value and stack only go to the log, tagged with the request id so the
// operator-facing error can be traced.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}

				reqID := middleware.GetReqID(r.Context())
				logger.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"request_id", reqID,
					"trace_id", w.Header().Get(TraceHeader),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				appErr := errors.NewInternalError("internal server error", nil)
				if reqID != "" {
					appErr = appErr.WithDetails(map[string]string{"request_id": reqID})
				}
				status, body := appErr.ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
