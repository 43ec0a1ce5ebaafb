// Package metrics provides Prometheus metrics for the winged progress engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Discovery pipeline
	discoveriesProcessed prometheus.Counter
	discoveriesRejected  *prometheus.CounterVec
	discoveriesDuplicate prometheus.Counter
	newSpecies           prometheus.Counter
	sightings            prometheus.Counter
	processingLatency    prometheus.Histogram
	processingErrors     prometheus.Counter

	// Progress outcomes
	achievementsUnlocked *prometheus.CounterVec
	unlockConflicts      prometheus.Counter
	levelUps             prometheus.Counter
	pointsAwarded        *prometheus.CounterVec
	totalUsers           prometheus.Gauge

	// Notifications
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	workerRetries           prometheus.Counter

	// Storage and cache
	storeTxLatency    prometheus.Histogram
	storeQueryLatency prometheus.Histogram
	storeErrors       *prometheus.CounterVec
	cacheErrors       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of our exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "winged",
		subsystem:      "progress",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
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

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	m.discoveriesProcessed = m.counter("discoveries_processed_total",
		"Total number of discovery events committed")
	m.discoveriesRejected = m.counterVec("discoveries_rejected_total",
		"Discovery events rejected before any state change", "reason")
	m.discoveriesDuplicate = m.counter("discoveries_duplicate_total",
		"Discovery events dropped as duplicate event ids")
	m.newSpecies = m.counter("new_species_total",
		"Discoveries that added a species to a user's collection")
	m.sightings = m.counter("sightings_total",
		"Repeat sightings of an already collected species")
	m.processingLatency = m.histogram("discovery_processing_latency_milliseconds",
		"End to end ProcessDiscovery latency in milliseconds", m.latencyBuckets)
	m.processingErrors = m.counter("discovery_processing_errors_total",
		"Discovery events that failed during the progress transaction")

	m.achievementsUnlocked = m.counterVec("achievements_unlocked_total",
		"Achievement unlock records created", "type", "tier")
	m.unlockConflicts = m.counter("unlock_conflicts_total",
		"Unlock inserts that hit the uniqueness constraint and were treated as already unlocked")
	m.levelUps = m.counter("level_ups_total",
		"Discoveries that raised a user's level")
	m.pointsAwarded = m.counterVec("points_awarded_total",
		"Points awarded by source", "source")
	m.totalUsers = m.gauge("total_users",
		"Users with a progress record")

	m.notificationsSent = m.counterVec("notifications_sent_total",
		"Notifications delivered to collaborators", "kind")
	m.notificationsFailed = m.counterVec("notifications_failed_total",
		"Notifications that failed or timed out", "kind")

	m.queueSize = m.gauge("queue_size", "Current number of queued discovery events")
	m.queueCapacity = m.gauge("queue_capacity", "Total queue capacity across shards")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Events enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Events dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total",
		"Enqueue attempts that were refused", "reason")

	m.workerCount = m.gauge("worker_count", "Number of discovery workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Worker latency per event including retries", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Events a worker gave up on")
	m.workerRetries = m.counter("worker_retries_total", "Event processing retries")

	m.storeTxLatency = m.histogram("store_tx_latency_milliseconds",
		"Per-user transaction latency in milliseconds", m.latencyBuckets)
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds",
		"Read query latency in milliseconds", m.latencyBuckets)
	m.storeErrors = m.counterVec("store_errors_total", "Store errors by operation", "op")
	m.cacheErrors = m.counterVec("cache_errors_total", "Leaderboard cache errors by operation", "op")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordDiscoveryProcessed counts a committed discovery.
func RecordDiscoveryProcessed() { globalManager.discoveriesProcessed.Inc() }

// RecordDiscoveryRejected counts a rejected discovery by reason.
func RecordDiscoveryRejected(reason string) {
	globalManager.discoveriesRejected.WithLabelValues(reason).Inc()
}

// RecordDiscoveryDuplicate counts a discovery dropped by event id.
func RecordDiscoveryDuplicate() { globalManager.discoveriesDuplicate.Inc() }

// RecordNewSpecies counts a first discovery of a species by a user.
func RecordNewSpecies() { globalManager.newSpecies.Inc() }

// RecordSighting counts a repeat sighting.
func RecordSighting() { globalManager.sightings.Inc() }

// RecordProcessingLatency observes ProcessDiscovery latency.
func RecordProcessingLatency(latencyMs float64) { globalManager.processingLatency.Observe(latencyMs) }

// RecordProcessingError counts a failed progress transaction.
func RecordProcessingError() { globalManager.processingErrors.Inc() }

// RecordAchievementUnlocked counts a new unlock record.
func RecordAchievementUnlocked(achievementType, tier string) {
	globalManager.achievementsUnlocked.WithLabelValues(achievementType, tier).Inc()
}

// RecordUnlockConflict counts an unlock swallowed as already present.
func RecordUnlockConflict() { globalManager.unlockConflicts.Inc() }

// RecordLevelUp counts a level increase.
func RecordLevelUp() { globalManager.levelUps.Inc() }

// RecordPointsAwarded adds awarded points under a source label.
func RecordPointsAwarded(source string, points int64) {
	globalManager.pointsAwarded.WithLabelValues(source).Add(float64(points))
}

// UpdateTotalUsers sets the number of users with progress.
func UpdateTotalUsers(count int) { globalManager.totalUsers.Set(float64(count)) }

// RecordNotificationSent counts a delivered notification.
func RecordNotificationSent(kind string) { globalManager.notificationsSent.WithLabelValues(kind).Inc() }

// RecordNotificationFailed counts a failed notification.
func RecordNotificationFailed(kind string) {
	globalManager.notificationsFailed.WithLabelValues(kind).Inc()
}

// UpdateQueueSize sets the current queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an enqueue.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes per-event worker latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts an event a worker gave up on.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordWorkerRetry counts a retry.
func RecordWorkerRetry() { globalManager.workerRetries.Inc() }

// RecordStoreTxLatency observes a per-user transaction.
func RecordStoreTxLatency(latencyMs float64) { globalManager.storeTxLatency.Observe(latencyMs) }

// RecordStoreQueryLatency observes a read query.
func RecordStoreQueryLatency(latencyMs float64) { globalManager.storeQueryLatency.Observe(latencyMs) }

// RecordStoreError counts a store error for op.
func RecordStoreError(op string) { globalManager.storeErrors.WithLabelValues(op).Inc() }

// RecordCacheError counts a cache error for op.
func RecordCacheError(op string) { globalManager.cacheErrors.WithLabelValues(op).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry our collectors live on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
