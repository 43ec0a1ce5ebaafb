package discovery

import (
	"time"

	"github.com/cosnor/winged/internal/domain/progress"
	"github.com/cosnor/winged/pkg/logger"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where unlock and level-up notifications go.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithCollectionCounter sets the collector feeding collections_completed.
func WithCollectionCounter(c CollectionCounter) Option {
	return func(o *Orchestrator) {
		o.collections = c
	}
}

// WithPointsTable overrides the species points table.
func WithPointsTable(t *progress.PointsTable) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.points = t
		}
	}
}

// WithClock sets the time source for unlock and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator sets how unlock record ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}
