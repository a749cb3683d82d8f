package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/logger"
	"github.com/sumo1993/medconsult-liberia-sub003/pkg/metrics"
)

func bufferedLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: buf})
}

func TestRequestIDKeepsWellFormedUpstreamID(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "edge-7f3a9c21")
	rec := serve(h, req)
	require.Equal(t, "edge-7f3a9c21", seen)
	require.Equal(t, "edge-7f3a9c21", rec.Header().Get(RequestIDHeader))

	for _, bad := range []string{"", "short", "has spaces in it", strings.Repeat("a", 65), "inject\nline"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, bad)
		rec := serve(h, req)
		require.NotEqual(t, bad, seen)
		require.Len(t, seen, 36)
		require.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestRecovererReturnsInternalEnvelope(t *testing.T) {
	var buf bytes.Buffer
	logg := bufferedLogger(&buf)
	h := RequestID(logg)(Recoverer(logg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	})))

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/assignments", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
	require.NotContains(t, rec.Body.String(), "nil map write")

	logged := buf.String()
	require.Contains(t, logged, "request.panic")
	require.Contains(t, logged, "nil map write")
	require.Contains(t, logged, rec.Header().Get(RequestIDHeader))
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLoggingRecordsRoutePatternAndStatus(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Logging(bufferedLogger(&buf), metrics.NewHTTPMetrics(reg)))
	r.Get("/api/v1/assignments/{assignmentId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/assignments/12", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "request.complete", line["message"])
	require.Equal(t, "/api/v1/assignments/{assignmentId}", line["route"])
	require.EqualValues(t, 202, line["status"])
	require.EqualValues(t, 2, line["bytes"])

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}
