package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangnph/vnquant/internal/net/circuit"
	"github.com/hoangnph/vnquant/internal/telemetry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Port = 0 // ephemeral; NewServer only probes the port then closes it

	breakers := circuit.NewManager(func(name string) circuit.Config {
		return circuit.Config{Name: name, FailureThreshold: 2, SuccessThreshold: 1}
	})
	metrics := telemetry.NewRegistry()
	metrics.BarsStored.WithLabelValues("ACB").Add(1) // vector metrics are lazy until first observed

	s, err := NewServer(cfg, zerolog.Nop(), metrics, breakers, NewReportStore())
	require.NoError(t, err)
	return s
}

func TestServer_HealthReportsHealthyWithNoBreakers(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_HealthReportsDegradedWhenBreakerOpen(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 2; i++ {
		_ = s.breakers.Call(context.Background(), "ssi", func(ctx context.Context) error {
			return assert.AnError
		})
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestServer_StatusReturnsPlaceholderBeforeAnyRun(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no run has completed yet")
}

func TestServer_StatusReturnsLastReport(t *testing.T) {
	s := newTestServer(t)
	s.reports.Set(map[string]string{"run_id": "abc"})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Contains(t, rec.Body.String(), "abc")
}

func TestServer_MetricsServesPrometheusFormat(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vnquant")
}

func TestServer_UnknownRouteReturns404JSON(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestServer_CORSAllowsLocalhostOrigin(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestReportStore_SetAndGet(t *testing.T) {
	rs := NewReportStore()
	assert.Nil(t, rs.Get())

	rs.Set("run-complete")
	assert.Equal(t, "run-complete", rs.Get())
}
