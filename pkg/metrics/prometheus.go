// Package metrics provides Prometheus metrics for the essay scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeCommitted  = "committed"
	OutcomeValidation = "validation"
	OutcomeNoSession  = "no_session"
	OutcomeInFlight   = "in_flight"
	OutcomeFailed     = "failed"
	OutcomeStale      = "stale"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Submission pipeline
	submissions        *prometheus.CounterVec
	submissionLatency  prometheus.Histogram
	submissionsRunning prometheus.Gauge

	// Scoring client
	scoringRequests *prometheus.CounterVec
	scoringLatency  *prometheus.HistogramVec
	scoringErrors   *prometheus.CounterVec

	// Session and history state
	activeSessions prometheus.Gauge
	sessionChanges *prometheus.CounterVec
	historySize    prometheus.Gauge
	averageScore   prometheus.Gauge
	lastScore      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "essayscore",
		subsystem:        "core",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.submissions = m.counterVec("submissions_total", "Essay submissions by outcome", "outcome")
	m.submissionLatency = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("submission_latency_milliseconds"),
		Help:        "End-to-end latency of submissions that reached the scoring service",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
	m.submissionsRunning = m.gauge("submissions_in_flight", "Submissions currently awaiting the scoring service")

	m.scoringRequests = m.counterVec("scoring_requests_total", "Scoring service calls by endpoint and status", "endpoint", "status")
	m.scoringLatency = m.histogramVec("scoring_latency_milliseconds", "Scoring service call latency by endpoint", "endpoint")
	m.scoringErrors = m.counterVec("scoring_errors_total", "Scoring service failures by endpoint and kind", "endpoint", "kind")

	m.activeSessions = m.gauge("active_sessions", "1 while an identity is logged in")
	m.sessionChanges = m.counterVec("session_changes_total", "Session lifecycle transitions", "action")
	m.historySize = m.gauge("history_size", "Essays recorded for the active identity")
	m.averageScore = m.gauge("average_score", "Average domain1 score of the active history")
	m.lastScore = m.gauge("last_score", "Domain1 score of the latest committed essay")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_milliseconds"),
		Help:        "Average GC pause per cycle",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		ConstLabels: m.customLabels,
	})
}

// RecordSubmission counts a submission outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordSubmissionLatency records end-to-end submission latency.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// IncSubmissionsInFlight marks a submission as started.
func IncSubmissionsInFlight() { globalManager.submissionsRunning.Inc() }

// DecSubmissionsInFlight marks a submission as finished.
func DecSubmissionsInFlight() { globalManager.submissionsRunning.Dec() }

// RecordScoringRequest counts a scoring call and observes its latency.
func RecordScoringRequest(endpoint, status string, latencyMs float64) {
	globalManager.scoringRequests.WithLabelValues(endpoint, status).Inc()
	globalManager.scoringLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordScoringError counts a failed scoring call.
func RecordScoringError(endpoint, kind string) {
	globalManager.scoringErrors.WithLabelValues(endpoint, kind).Inc()
}

// UpdateActiveSessions sets the active session gauge.
func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

// RecordSessionChange counts login, signup and logout transitions.
func RecordSessionChange(action string) {
	globalManager.sessionChanges.WithLabelValues(action).Inc()
}

// UpdateHistorySize sets the history size gauge.
func UpdateHistorySize(n int) {
	globalManager.historySize.Set(float64(n))
}

// UpdateAverageScore sets the average score gauge.
func UpdateAverageScore(avg float64) {
	globalManager.averageScore.Set(avg)
}

// UpdateLastScore sets the latest committed score gauge.
func UpdateLastScore(score float64) {
	globalManager.lastScore.Set(score)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) {
	globalManager.systemGoroutineCount.Set(float64(n))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	globalManager.systemGCPauseTime.Observe(ms)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
