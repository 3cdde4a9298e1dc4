package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/yescount/internal/logging"
)

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	capture := func(seen *string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*seen = logging.CorrelationIDFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
	}

	t.Run("honors an inbound header", func(t *testing.T) {
		t.Parallel()

		var seen string
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(CorrelationHeader, "abc-123")
		rec := httptest.NewRecorder()
		CorrelationID()(capture(&seen)).ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(CorrelationHeader))
	})

	t.Run("generates one when missing or oversized", func(t *testing.T) {
		t.Parallel()

		for _, inbound := range []string{"", strings.Repeat("x", maxCorrelationIDLength+1)} {
			var seen string
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if inbound != "" {
				req.Header.Set(CorrelationHeader, inbound)
			}
			rec := httptest.NewRecorder()
			CorrelationID()(capture(&seen)).ServeHTTP(rec, req)

			assert.Len(t, seen, 36)
			assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var fromCtx *slog.Logger
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set(CorrelationHeader, "corr-9")
	rec := httptest.NewRecorder()
	CorrelationID()(RequestLogger(base)(next)).ServeHTTP(rec, req)

	require.NotNil(t, fromCtx)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var completed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))
	assert.Equal(t, "request completed", completed["msg"])
	assert.Equal(t, "corr-9", completed["correlation_id"])
	assert.Equal(t, "/events", completed["path"])
	assert.EqualValues(t, http.StatusTeapot, completed["status"])
	assert.EqualValues(t, 1, completed["request_id"])
}
