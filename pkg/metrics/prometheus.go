// Package metrics provides Prometheus metrics for the rollcall attendance service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values, mirroring model.Outcome names.
const (
	OutcomeIgnored        = "ignored"
	OutcomeConfirmed      = "confirmed"
	OutcomeAlreadyPresent = "already_present"
	OutcomeStorageError   = "storage_error"
	OutcomeWriteFailed    = "write_failed"
)

// defaultLatencyBuckets are milliseconds; ledger I/O is expected to be well under a second.
var defaultLatencyBuckets = []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // constant table

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Recognition stream
	eventsReceived     prometheus.Counter
	eventsObserved     prometheus.Counter
	thresholdCrossings prometheus.Counter
	outcomes           *prometheus.CounterVec

	// Session state
	sessionActive   prometheus.Gauge
	sessionsStarted prometheus.Counter
	trackedSubjects prometheus.Gauge

	// Dedup store
	dedupeCacheHits   prometheus.Counter
	dedupeCacheMisses prometheus.Counter
	dedupeCachedDays  prometheus.Gauge

	// Ledger
	ledgerAppendLatency prometheus.Histogram
	ledgerReadLatency   prometheus.Histogram
	ledgerErrors        *prometheus.CounterVec
	ledgerRecords       prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Archive
	archiveUploads *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rollcall",
		subsystem:        "attendance",
		histogramBuckets: defaultLatencyBuckets,
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.eventsReceived = m.counter("events_received_total", "Identity events accepted at the recognizer boundary")
	m.eventsObserved = m.counter("events_observed_total", "Identity events fed to the confirmation tracker")
	m.thresholdCrossings = m.counter("threshold_crossings_total", "Times a subject reached the confirmation threshold")
	m.outcomes = m.counterVec("outcomes_total", "Engine outcomes by kind", "outcome")

	m.sessionActive = m.gauge("session_active", "1 while a recognition session is running")
	m.sessionsStarted = m.counter("sessions_started_total", "Recognition sessions started")
	m.trackedSubjects = m.gauge("tracked_subjects", "Subjects with a counter in the active session")

	m.dedupeCacheHits = m.counter("dedupe_cache_hits_total", "Dedup checks answered from the per-date cache")
	m.dedupeCacheMisses = m.counter("dedupe_cache_misses_total", "Dedup checks that loaded the ledger")
	m.dedupeCachedDays = m.gauge("dedupe_cached_days", "Dates currently held in the dedup cache")

	m.ledgerAppendLatency = m.histogram("ledger_append_latency_milliseconds", "Ledger append latency in milliseconds")
	m.ledgerReadLatency = m.histogram("ledger_read_latency_milliseconds", "Ledger read latency in milliseconds")
	m.ledgerErrors = m.counterVec("ledger_errors_total", "Ledger errors by operation", "op")
	m.ledgerRecords = m.counter("ledger_records_total", "Attendance records committed")

	m.queueSize = m.gauge("queue_size", "Current size of the event queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")

	m.workerCount = m.gauge("worker_count", "Workers consuming the active session queue")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-event processing latency in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.archiveUploads = m.counterVec("archive_uploads_total", "Ledger archive uploads by result", "result")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordEventReceived increments the received events counter.
func RecordEventReceived() { globalManager.eventsReceived.Inc() }

// RecordEventObserved increments the observed events counter.
func RecordEventObserved() { globalManager.eventsObserved.Inc() }

// RecordThresholdCrossing increments the threshold crossing counter.
func RecordThresholdCrossing() { globalManager.thresholdCrossings.Inc() }

// RecordOutcome counts an engine outcome.
func RecordOutcome(outcome string) { globalManager.outcomes.WithLabelValues(outcome).Inc() }

// SetSessionActive flips the session gauge.
func SetSessionActive(active bool) {
	if active {
		globalManager.sessionActive.Set(1)
		globalManager.sessionsStarted.Inc()
		return
	}
	globalManager.sessionActive.Set(0)
	globalManager.trackedSubjects.Set(0)
}

// UpdateTrackedSubjects sets the number of subjects with a live counter.
func UpdateTrackedSubjects(n int) { globalManager.trackedSubjects.Set(float64(n)) }

// RecordDedupeCacheHit increments the cache hit counter.
func RecordDedupeCacheHit() { globalManager.dedupeCacheHits.Inc() }

// RecordDedupeCacheMiss increments the cache miss counter.
func RecordDedupeCacheMiss() { globalManager.dedupeCacheMisses.Inc() }

// UpdateDedupeCachedDays sets the number of cached dates.
func UpdateDedupeCachedDays(n int) { globalManager.dedupeCachedDays.Set(float64(n)) }

// RecordLedgerAppendLatency records an append latency in milliseconds.
func RecordLedgerAppendLatency(ms float64) { globalManager.ledgerAppendLatency.Observe(ms) }

// RecordLedgerReadLatency records a read latency in milliseconds.
func RecordLedgerReadLatency(ms float64) { globalManager.ledgerReadLatency.Observe(ms) }

// RecordLedgerError counts a ledger failure for op ("read" or "append").
func RecordLedgerError(op string) { globalManager.ledgerErrors.WithLabelValues(op).Inc() }

// RecordLedgerRecord counts a committed record.
func RecordLedgerRecord() { globalManager.ledgerRecords.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordArchiveUpload counts an archive attempt by result: ok, empty, read_error, encode_error or error.
func RecordArchiveUpload(result string) { globalManager.archiveUploads.WithLabelValues(result).Inc() }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
