package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosnor/winged/internal/adapters/mq/queue"
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/pkg/logger"
	"github.com/cosnor/winged/pkg/metrics"
)

const (
	defaultRetries     = 3
	defaultBaseBackoff = 20 * time.Millisecond
	defaultMaxBackoff  = time.Second
)

// Event is what workers read off the queue.
type Event = queue.Event

// Processor applies one event.
type Processor interface {
	Process(ctx context.Context, ev Event) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, ev Event) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, ev Event) error { return f(ctx, ev) } //nolint:gocritic // hugeParam

// FailureHook observes events that were dropped after the last attempt.
type FailureHook func(ctx context.Context, ev Event, err error)

func newConfig(opts []Option) config {
	c := config{
		name:        "worker",
		retries:     defaultRetries,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		permanent:   func(err error) bool { return errors.Is(err, discovery.ErrValidation) },
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = logger.Named(c.name)
	}
	return c
}

// Worker processes the events of one channel sequentially.
type Worker struct {
	in   <-chan Event
	proc Processor
	cfg  config
	busy *atomic.Int64
	done chan struct{}
}

// New creates a worker reading from in.
func New(in <-chan Event, proc Processor, opts ...Option) *Worker {
	return &Worker{in: in, proc: proc, cfg: newConfig(opts), busy: new(atomic.Int64), done: make(chan struct{})}
}

// Run processes events until in is closed and drained or ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.in:
			if !ok {
				return
			}
			w.busy.Add(1)
			metrics.RecordQueueDequeue()
			w.handle(ctx, ev)
			w.busy.Add(-1)
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) handle(ctx context.Context, ev Event) { //nolint:gocritic // hugeParam
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	err := w.processWithRetry(ctx, ev)
	if err == nil {
		return
	}
	metrics.RecordWorkerError()
	w.cfg.logger.Error(ctx, "dropping discovery event",
		logger.Int64("user_id", ev.UserID),
		logger.String("event_id", ev.EventID),
		logger.Error(err),
	)
	if w.cfg.onFailure != nil {
		w.cfg.onFailure(ctx, ev, err)
	}
}

func (w *Worker) processWithRetry(ctx context.Context, ev Event) error { //nolint:gocritic // hugeParam
	delay := w.cfg.baseBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = w.proc.Process(ctx, ev)
		if err == nil || w.cfg.permanent(err) || attempt >= w.cfg.retries {
			break
		}
		metrics.RecordWorkerRetry()
		w.cfg.logger.Warn(ctx, "retrying discovery event",
			logger.String("event_id", ev.EventID),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", errors.Join(err, ctx.Err()))
		case <-time.After(delay):
		}
		delay *= 2
		if delay > w.cfg.maxBackoff {
			delay = w.cfg.maxBackoff
		}
	}
	return err
}

// Pool runs one worker per queue shard.
type Pool struct {
	queue   *queue.Sharded
	workers []*Worker
	busy    atomic.Int64
	logger  logger.Logger
	start   sync.Once
	started atomic.Bool
}

// NewPool creates a worker for every shard of q.
func NewPool(q *queue.Sharded, proc Processor, opts ...Option) *Pool {
	p := &Pool{queue: q, logger: logger.Named("worker-pool")}
	for i, shard := range q.Shards() {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := New(shard.Dequeue(), proc, wopts...)
		w.busy = &p.busy
		p.workers = append(p.workers, w)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// InFlight returns the number of events taken off the queue and not yet
// finished.
func (p *Pool) InFlight() int { return int(p.busy.Load()) }

// Start launches the workers. Calling it twice has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.start.Do(func() {
		p.started.Store(true)
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
	})
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !p.started.Load() {
		return nil
	}
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
