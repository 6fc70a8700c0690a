package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestRequestLogging_Levels(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		level  string
		msg    string
	}{
		{"ok", http.StatusOK, "info", "HTTP request completed"},
		{"client error", http.StatusUnprocessableEntity, "warn", "HTTP request completed with client error"},
		{"server error", http.StatusInternalServerError, "error", "HTTP request completed with server error"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			log := testutil.NewMockLogger()
			h := RequestLogging(log, DefaultLoggingConfig())(statusHandler(tt.status))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/notations/count", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.True(t, log.HasMessage(tt.level, tt.msg))
		})
	}
}

func TestRequestLogging_Slow(t *testing.T) {
	t.Parallel()
	log := testutil.NewMockLogger()
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		_, _ = w.Write([]byte("done"))
	})
	h := RequestLogging(log, LoggingConfig{SlowThreshold: time.Millisecond})(slow)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/monomers", nil))
	assert.True(t, log.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	t.Parallel()
	log := testutil.NewMockLogger()
	h := RequestLogging(log, DefaultLoggingConfig())(statusHandler(http.StatusOK))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, log.GetMessages())
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	t.Parallel()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/v1/monomers/{type}/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/monomers/peptide/A", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/monomers/rna/R", nil))

	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(),
		`test_http_requests_total{method="GET",path="/api/v1/monomers/{type}/{symbol}",status_code="404"} 2`)
}

func TestMetrics_NilPassesThrough(t *testing.T) {
	t.Parallel()
	h := statusHandler(http.StatusTeapot)
	w := httptest.NewRecorder()
	Metrics(nil)(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
