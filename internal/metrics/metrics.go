package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Planora backend.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Read-through cache metrics, labeled per cache family.
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Retry executor metrics.
	RetryAttemptsTotal *prometheus.CounterVec

	// Identity reconciliation metrics.
	ReconciliationsTotal *prometheus.CounterVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planora_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		HTTPResponseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planora_http_response_size_bytes",
			Help:    "HTTP response size in bytes.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "path_pattern"}),

		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_cache_hits_total",
			Help: "Total number of cache hits by cache family.",
		}, []string{"family"}),

		CacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_cache_misses_total",
			Help: "Total number of cache misses by cache family.",
		}, []string{"family"}),

		RetryAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_retry_attempts_total",
			Help: "Total number of retried store operations.",
		}, []string{"attempt"}),

		ReconciliationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_identity_reconciliations_total",
			Help: "Total number of identity reconciliations by outcome.",
		}, []string{"outcome"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planora_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"auth_type"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planora_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	// Register all metrics.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RetryAttemptsTotal,
		m.ReconciliationsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.ServerStartTime,
	)

	// Set server start time.
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// CacheHit records a read served from the cache for the given family.
func (m *Metrics) CacheHit(family string) {
	m.CacheHitsTotal.WithLabelValues(family).Inc()
}

// CacheMiss records a read that had to fall through to the database.
func (m *Metrics) CacheMiss(family string) {
	m.CacheMissesTotal.WithLabelValues(family).Inc()
}

// Reconciliation records an identity merge attempt by outcome ("ok", "error").
func (m *Metrics) Reconciliation(outcome string) {
	m.ReconciliationsTotal.WithLabelValues(outcome).Inc()
}

// RetryAttempt records a retried store operation at the given attempt number.
func (m *Metrics) RetryAttempt(attempt string) {
	m.RetryAttemptsTotal.WithLabelValues(attempt).Inc()
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncAuthSuccess increments the auth success counter for the given auth type.
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}
