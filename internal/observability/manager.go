package observability

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Control call status constants
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDenied  = "denied"
)

// Manager coordinates health checks, metrics and tracing.
type Manager struct {
	logger  *zap.SugaredLogger
	health  *HealthManager
	metrics *MetricsManager
	tracing *TracingManager

	startTime time.Time
}

// NewManager creates the observability stack. Health and metrics are always
// on; tracing follows the supplied config.
func NewManager(logger *zap.SugaredLogger, tracing TracingConfig) (*Manager, error) {
	manager := &Manager{
		logger:    logger,
		health:    NewHealthManager(logger),
		metrics:   NewMetricsManager(logger),
		startTime: time.Now(),
	}

	tm, err := NewTracingManager(logger, tracing)
	if err != nil {
		return nil, err
	}
	manager.tracing = tm

	return manager, nil
}

// Health returns the health manager
func (m *Manager) Health() *HealthManager {
	return m.health
}

// Metrics returns the metrics manager
func (m *Manager) Metrics() *MetricsManager {
	return m.metrics
}

// Tracing returns the tracing manager
func (m *Manager) Tracing() *TracingManager {
	return m.tracing
}

// RegisterHealthChecker registers a health checker
func (m *Manager) RegisterHealthChecker(checker HealthChecker) {
	m.health.AddHealthChecker(checker)
}

// RegisterReadinessChecker registers a readiness checker
func (m *Manager) RegisterReadinessChecker(checker ReadinessChecker) {
	m.health.AddReadinessChecker(checker)
}

// HTTPMiddleware returns combined HTTP middleware for observability
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	metricsMW := m.metrics.HTTPMiddleware()
	tracingMW := m.tracing.HTTPMiddleware()

	return func(next http.Handler) http.Handler {
		return metricsMW(tracingMW(next))
	}
}

// Uptime reports how long the shell has been running.
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Close gracefully shuts down observability components
func (m *Manager) Close(ctx context.Context) error {
	if m.tracing != nil {
		if err := m.tracing.Close(ctx); err != nil {
			m.logger.Errorw("Failed to close tracing manager", "error", err)
			return err
		}
	}
	return nil
}

// IsHealthy returns true if all health checks pass
func (m *Manager) IsHealthy() bool {
	return m.health.IsHealthy()
}

// IsReady returns true if all readiness checks pass
func (m *Manager) IsReady() bool {
	return m.health.IsReady()
}

// RecordTransition forwards a lifecycle transition to the metrics registry.
func (m *Manager) RecordTransition(from, to string) {
	m.metrics.RecordTransition(from, to)
}

// SetSessionStatus forwards the current session status to the metrics
// registry.
func (m *Manager) SetSessionStatus(status string) {
	m.metrics.SetSessionStatus(status)
}

// ObserveProbe forwards a settled reachability probe to the metrics registry.
func (m *Manager) ObserveProbe(outcome string, elapsed time.Duration) {
	m.metrics.ObserveProbe(outcome, elapsed)
}

// RecordControlCall records one control operation with its outcome.
func (m *Manager) RecordControlCall(ctx context.Context, op string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.metrics.RecordControlCall(op, status, duration)

	if err != nil {
		m.tracing.SetSpanError(ctx, err)
	}
}

// RecordAccessDenied records an origin gate rejection.
func (m *Manager) RecordAccessDenied(op string) {
	m.metrics.RecordControlCall(op, StatusDenied, 0)
	m.metrics.RecordAccessDenied(op)
}
