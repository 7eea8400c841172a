package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

const maxLoggedBody = 4 << 10

// quietPaths are probed constantly and only logged at debug level.
var quietPaths = map[string]bool{
	"/metrics":       true,
	"/api/v1/ping":   true,
	"/api/v1/health": true,
	"/openapi.yml":   true,
}

// secretFields are dropped entirely; partialFields keep their last four characters.
var (
	secretFields = []string{"password", "token", "secret", "authorization", "api_key", "credential"}

	partialFields = []string{"account_number", "mobile_money_number", "recipient_code"}
)

// LoggingMiddleware writes one access log line per request. Request bodies of
// writes and response bodies of failures are included, redacted and truncated.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			var reqBody []byte
			if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status()
			attrs := []any{
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.written,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}
			if len(reqBody) > 0 {
				attrs = append(attrs, "request_body", redactBody(reqBody))
			}
			if status >= http.StatusBadRequest && rec.failure.Len() > 0 {
				attrs = append(attrs, "response_body", redactBody(rec.failure.Bytes()))
			}

			logger.Log(r.Context(), accessLevel(r.URL.Path, status), "http request", attrs...)
		})
	}
}

func accessLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case quietPaths[path] || strings.HasPrefix(path, "/swagger/"):
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// statusRecorder keeps the status and, once the status is a failure, a bounded
// copy of the body.
type statusRecorder struct {
	http.ResponseWriter
	code    int
	written int
	failure bytes.Buffer
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code == 0 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.code = http.StatusOK
	}
	if s.code >= http.StatusBadRequest && s.failure.Len() < maxLoggedBody {
		s.failure.Write(b[:min(len(b), maxLoggedBody-s.failure.Len())])
	}
	n, err := s.ResponseWriter.Write(b)
	s.written += n
	return n, err
}

func (s *statusRecorder) status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}

// redactBody masks payout and credential fields of a JSON body. Non-JSON bodies
// are replaced by their size.
func redactBody(body []byte) string {
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return "[non-json body, " + strconv.Itoa(len(body)) + " bytes]"
	}

	out, err := json.Marshal(redactValue(data))
	if err != nil {
		return "[unloggable body]"
	}
	return string(out)
}

func redactValue(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = redactField(strings.ToLower(key), value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	}
	return data
}

func redactField(key string, value any) any {
	for _, f := range secretFields {
		if strings.Contains(key, f) {
			return "[FILTERED]"
		}
	}
	for _, f := range partialFields {
		if strings.Contains(key, f) {
			s, ok := value.(string)
			if !ok || len(s) <= 4 {
				return "[FILTERED]"
			}
			return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
		}
	}
	return redactValue(value)
}
