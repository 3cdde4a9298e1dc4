package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/example/yescount/internal/logging"
)

// CorrelationHeader carries the identifier shared by logs and error payloads.
const CorrelationHeader = "X-Correlation-ID"

const maxCorrelationIDLength = 128

// CorrelationID assigns every request a correlation identifier, reusing a
// well formed inbound header, and echoes it on the response.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(CorrelationHeader))
			if id == "" || len(id) > maxCorrelationIDLength {
				id = uuid.NewString()
			}
			w.Header().Set(CorrelationHeader, id)
			ctx := logging.ContextWithCorrelationID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger and records start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			attrs := []any{
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			}
			if corr := logging.CorrelationIDFromContext(r.Context()); corr != "" {
				attrs = append(attrs, "correlation_id", corr)
			}
			logger := base.With(attrs...)

			ctx := ContextWithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
