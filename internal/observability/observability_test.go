package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetSessionStatusIsOneHot(t *testing.T) {
	mm := NewMetricsManager(zap.NewNop().Sugar())

	mm.SetSessionStatus("started")
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.sessionStatus.WithLabelValues("started")))
	assert.Equal(t, 0.0, testutil.ToFloat64(mm.sessionStatus.WithLabelValues("stopped")))

	mm.SetSessionStatus("stopped")
	assert.Equal(t, 0.0, testutil.ToFloat64(mm.sessionStatus.WithLabelValues("started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.sessionStatus.WithLabelValues("stopped")))
}

func TestRecordControlCallCounts(t *testing.T) {
	mm := NewMetricsManager(zap.NewNop().Sugar())

	mm.RecordControlCall("server:start", StatusSuccess, 20*time.Millisecond)
	mm.RecordControlCall("server:start", StatusSuccess, 30*time.Millisecond)
	mm.RecordControlCall("server:start", StatusError, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(mm.controlCalls.WithLabelValues("server:start", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.controlCalls.WithLabelValues("server:start", StatusError)))
}

func TestHealthzReportsFailingComponent(t *testing.T) {
	hm := NewHealthManager(zap.NewNop().Sugar())
	hm.AddHealthChecker(NewComponentHealthChecker("bridge",
		func() bool { return false },
		func() bool { return true },
	))

	rec := httptest.NewRecorder()
	hm.HealthzHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
	assert.False(t, hm.IsHealthy())
}

func TestSessionHealthCheckerFailedState(t *testing.T) {
	status := "started"
	checker := NewSessionHealthChecker("session", func() string { return status })

	require.NoError(t, checker.HealthCheck(context.Background()))

	status = "failed"
	err := checker.HealthCheck(context.Background())
	require.Error(t, err)

	// A stopped server is not an error for the shell.
	status = "stopped"
	require.NoError(t, checker.HealthCheck(context.Background()))
}

func TestManagerDisabledTracingStillServes(t *testing.T) {
	m, err := NewManager(zap.NewNop().Sugar(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	defer m.Close(context.Background())

	assert.False(t, m.Tracing().IsEnabled())
	assert.True(t, m.IsHealthy())

	// The combined middleware passes requests through untouched.
	var hit bool
	h := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	assert.True(t, hit)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	m.RecordControlCall(context.Background(), "status:server", time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.controlCalls.WithLabelValues("status:server", StatusError)))
}
