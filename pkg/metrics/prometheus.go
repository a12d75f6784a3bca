package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Measurement outcome labels.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Measurement engine
	measurements        *prometheus.CounterVec
	measurementLatency  *prometheus.HistogramVec
	situationQueries    prometheus.Counter
	situationFlagged    prometheus.Counter
	situationLastRatio  prometheus.Gauge
	explainedDifference prometheus.Histogram

	// Report pipeline
	reportsSubmitted  prometheus.Counter
	reportsDuplicate  prometheus.Counter
	reportsCompleted  *prometheus.CounterVec
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueRejected     *prometheus.CounterVec
	workerCount       prometheus.Gauge
	workerLatency     prometheus.Histogram
	workerErrors      prometheus.Counter
	reportStoreSize   prometheus.Gauge
	reportStoreEvicts prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fairlens",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.measurements = m.counterVec("measurements_total", "Measurement calls by measure and status", "measure", "status")
	m.measurementLatency = m.histogramVec("measurement_latency_milliseconds", "Measurement latency in milliseconds", "measure")
	m.situationQueries = m.counter("situation_queries_total", "Protected-group-1 individuals tested by situation testing")
	m.situationFlagged = m.counter("situation_flagged_total", "Individuals flagged as discriminated by situation testing")
	m.situationLastRatio = m.gauge("situation_last_ratio", "Discriminated fraction of the most recent situation test")
	m.explainedDifference = m.histogram("explained_difference", "Explained share of the mean difference per stratified measurement",
		prometheus.LinearBuckets(-1, 0.1, 21))

	m.reportsSubmitted = m.counter("reports_submitted_total", "Reports accepted for asynchronous evaluation")
	m.reportsDuplicate = m.counter("reports_duplicate_total", "Report submissions rejected as duplicates of a request id")
	m.reportsCompleted = m.counterVec("reports_completed_total", "Reports finished by status", "status")
	m.queueSize = m.gauge("queue_size", "Current number of queued report jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued report jobs")
	m.queueRejected = m.counterVec("queue_rejected_total", "Report jobs refused by the queue", "reason")
	m.workerCount = m.gauge("worker_count", "Number of report workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Report evaluation latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Report evaluations that failed")
	m.reportStoreSize = m.gauge("report_store_size", "Reports currently retained in memory")
	m.reportStoreEvicts = m.counter("report_store_evictions_total", "Reports evicted to stay within the store capacity")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// RecordMeasurement counts a measurement call and its latency.
func (m *Manager) RecordMeasurement(measure, status string, latencyMs float64) {
	m.measurements.WithLabelValues(measure, status).Inc()
	m.measurementLatency.WithLabelValues(measure).Observe(latencyMs)
}

// RecordSituationTest records the size and result of one situation test.
func (m *Manager) RecordSituationTest(tested, flagged int) {
	m.situationQueries.Add(float64(tested))
	m.situationFlagged.Add(float64(flagged))
	if tested > 0 {
		m.situationLastRatio.Set(float64(flagged) / float64(tested))
	}
}

// RecordExplainedDifference observes the explained component of a stratified measurement.
func (m *Manager) RecordExplainedDifference(v float64) { m.explainedDifference.Observe(v) }

// RecordReportSubmitted increments the accepted reports counter.
func (m *Manager) RecordReportSubmitted() { m.reportsSubmitted.Inc() }

// RecordReportDuplicate increments the duplicate submissions counter.
func (m *Manager) RecordReportDuplicate() { m.reportsDuplicate.Inc() }

// RecordReportCompleted counts a finished report by status.
func (m *Manager) RecordReportCompleted(status string) { m.reportsCompleted.WithLabelValues(status).Inc() }

// UpdateQueue sets the queue size and capacity gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected counts a job the queue refused.
func (m *Manager) RecordQueueRejected(reason string) { m.queueRejected.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the worker count gauge.
func (m *Manager) UpdateWorkerCount(count int) { m.workerCount.Set(float64(count)) }

// RecordWorkerLatency observes a report evaluation latency in milliseconds.
func (m *Manager) RecordWorkerLatency(latencyMs float64) { m.workerLatency.Observe(latencyMs) }

// RecordWorkerError counts a failed report evaluation.
func (m *Manager) RecordWorkerError() { m.workerErrors.Inc() }

// UpdateReportStoreSize sets the number of retained reports.
func (m *Manager) UpdateReportStoreSize(size int) { m.reportStoreSize.Set(float64(size)) }

// RecordReportStoreEviction counts an evicted report.
func (m *Manager) RecordReportStoreEviction() { m.reportStoreEvicts.Inc() }

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError counts an error raised by a component.
func (m *Manager) RecordError(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystem sets the runtime gauges.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int, avgGCPauseMs float64) {
	m.systemMemoryUsage.Set(float64(memoryBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(avgGCPauseMs)
	}
}

// Package-level helpers record on the global manager.

// RecordMeasurement counts a measurement call and its latency.
func RecordMeasurement(measure, status string, latencyMs float64) {
	globalManager.RecordMeasurement(measure, status, latencyMs)
}

// RecordSituationTest records the size and result of one situation test.
func RecordSituationTest(tested, flagged int) { globalManager.RecordSituationTest(tested, flagged) }

// RecordExplainedDifference observes the explained component of a stratified measurement.
func RecordExplainedDifference(v float64) { globalManager.RecordExplainedDifference(v) }

// RecordReportSubmitted increments the accepted reports counter.
func RecordReportSubmitted() { globalManager.RecordReportSubmitted() }

// RecordReportDuplicate increments the duplicate submissions counter.
func RecordReportDuplicate() { globalManager.RecordReportDuplicate() }

// RecordReportCompleted counts a finished report by status.
func RecordReportCompleted(status string) { globalManager.RecordReportCompleted(status) }

// UpdateQueue sets the queue size and capacity gauges.
func UpdateQueue(size, capacity int) { globalManager.UpdateQueue(size, capacity) }

// RecordQueueRejected counts a job the queue refused.
func RecordQueueRejected(reason string) { globalManager.RecordQueueRejected(reason) }

// UpdateWorkerCount sets the worker count gauge.
func UpdateWorkerCount(count int) { globalManager.UpdateWorkerCount(count) }

// RecordWorkerLatency observes a report evaluation latency in milliseconds.
func RecordWorkerLatency(latencyMs float64) { globalManager.RecordWorkerLatency(latencyMs) }

// RecordWorkerError counts a failed report evaluation.
func RecordWorkerError() { globalManager.RecordWorkerError() }

// UpdateReportStoreSize sets the number of retained reports.
func UpdateReportStoreSize(size int) { globalManager.UpdateReportStoreSize(size) }

// RecordReportStoreEviction counts an evicted report.
func RecordReportStoreEviction() { globalManager.RecordReportStoreEviction() }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordError counts an error raised by a component.
func RecordError(component, errorType string) { globalManager.RecordError(component, errorType) }

// UpdateSystem sets the runtime gauges.
func UpdateSystem(memoryBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.UpdateSystem(memoryBytes, goroutines, avgGCPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
