package repository

import "time"

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithObserver registers an observer of committed progress.
func WithObserver(o Observer) Option {
	return func(s *MemoryStore) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLockStripes sets how many mutexes user transactions are spread over.
func WithLockStripes(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.stripes = n
		}
	}
}
