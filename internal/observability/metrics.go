package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// sessionStatuses are the lifecycle states exported as a one-hot gauge.
var sessionStatuses = []string{"stopped", "starting", "started", "failed"}

// MetricsManager manages Prometheus metrics
type MetricsManager struct {
	logger   *zap.SugaredLogger
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	controlCalls    *prometheus.CounterVec
	controlDuration *prometheus.HistogramVec
	accessDenied    *prometheus.CounterVec

	sessionStatus      *prometheus.GaugeVec
	sessionTransitions *prometheus.CounterVec
	probeDuration      *prometheus.HistogramVec
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(logger *zap.SugaredLogger) *MetricsManager {
	mm := &MetricsManager{
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	mm.initMetrics()
	mm.registerMetrics()

	return mm
}

func (mm *MetricsManager) initMetrics() {
	mm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openwebui_desktop_http_requests_total",
			Help: "Total number of control bridge HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	mm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openwebui_desktop_http_request_duration_seconds",
			Help:    "Control bridge HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	mm.controlCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openwebui_desktop_control_calls_total",
			Help: "Total number of control operations dispatched",
		},
		[]string{"op", "status"},
	)

	mm.controlDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openwebui_desktop_control_call_duration_seconds",
			Help:    "Control operation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"op", "status"},
	)

	mm.accessDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openwebui_desktop_access_denied_total",
			Help: "Control calls rejected by the origin gate",
		},
		[]string{"op"},
	)

	mm.sessionStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "openwebui_desktop_session_status",
			Help: "Current lifecycle status as a one-hot gauge",
		},
		[]string{"status"},
	)

	mm.sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openwebui_desktop_session_transitions_total",
			Help: "Total number of lifecycle state transitions",
		},
		[]string{"from", "to"},
	)

	mm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openwebui_desktop_probe_duration_seconds",
			Help:    "Time from launch until the reachability probe settled",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"}, // outcome: success, timeout, canceled
	)
}

func (mm *MetricsManager) registerMetrics() {
	mm.registry.MustRegister(
		mm.httpRequests,
		mm.httpDuration,
		mm.controlCalls,
		mm.controlDuration,
		mm.accessDenied,
		mm.sessionStatus,
		mm.sessionTransitions,
		mm.probeDuration,
	)

	mm.registry.MustRegister(collectors.NewGoCollector())
	mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns an HTTP handler for the /metrics endpoint
func (mm *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry for custom metrics
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// RecordHTTPRequest records an HTTP request
func (mm *MetricsManager) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	mm.httpRequests.WithLabelValues(method, path, status).Inc()
	mm.httpDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordControlCall records one dispatched control operation.
func (mm *MetricsManager) RecordControlCall(op, status string, duration time.Duration) {
	mm.controlCalls.WithLabelValues(op, status).Inc()
	mm.controlDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}

// RecordAccessDenied records an origin gate rejection.
func (mm *MetricsManager) RecordAccessDenied(op string) {
	mm.accessDenied.WithLabelValues(op).Inc()
}

// RecordTransition records a lifecycle state transition.
func (mm *MetricsManager) RecordTransition(from, to string) {
	mm.sessionTransitions.WithLabelValues(from, to).Inc()
}

// SetSessionStatus sets the one-hot session status gauge.
func (mm *MetricsManager) SetSessionStatus(status string) {
	for _, s := range sessionStatuses {
		v := 0.0
		if s == status {
			v = 1.0
		}
		mm.sessionStatus.WithLabelValues(s).Set(v)
	}
}

// ObserveProbe records how long a reachability probe ran and how it ended.
func (mm *MetricsManager) ObserveProbe(outcome string, elapsed time.Duration) {
	mm.probeDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// HTTPMiddleware returns middleware that records HTTP metrics
func (mm *MetricsManager) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			mm.RecordHTTPRequest(r.Method, r.URL.Path, http.StatusText(ww.statusCode), time.Since(start))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
