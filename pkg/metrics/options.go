package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// defaultLatencyBuckets are in milliseconds, matching every latency series.
var defaultLatencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // bucket table

// Option configures a Manager before its collectors are registered.
type Option func(*Manager)

// WithPrefix replaces the "winged_progress" metric name prefix. Empty parts
// keep their default.
func WithPrefix(namespace, subsystem string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets of every latency histogram
// except GC pauses.
func WithLatencyBuckets(buckets ...float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.latencyBuckets = buckets
		}
	}
}

// WithConstLabels attaches labels, such as the store driver, to every series.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(m *Manager) {
		m.constLabels = labels
	}
}

// WithRegisterer registers the collectors on r instead of the default registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
