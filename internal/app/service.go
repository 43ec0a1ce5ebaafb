// Package service wires the progress engine together and implements the
// operations the HTTP API exposes.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/cosnor/winged/internal/adapters/mq/queue"
	"github.com/cosnor/winged/internal/adapters/mq/worker"
	"github.com/cosnor/winged/internal/adapters/repository"
	"github.com/cosnor/winged/internal/domain/achievement"
	"github.com/cosnor/winged/internal/domain/collection"
	"github.com/cosnor/winged/internal/domain/dedupe"
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/leaderboard"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/progress"
	"github.com/cosnor/winged/pkg/logger"
)

// Service implements the API dependencies for the progress engine.
type Service struct {
	mu sync.RWMutex

	store        repository.Store
	catalog      *achievement.Catalog
	orchestrator *discovery.Orchestrator
	ranks        *leaderboard.Service
	evaluator    achievement.Evaluator
	counter      *collection.SetCounter
	deduper      dedupe.Deduper
	queue        *queue.Sharded
	pool         *worker.Pool
	notifier     discovery.Notifier
	cache        leaderboard.Reader

	workerCount   int
	queueSize     int
	dedupeSize    int
	retries       int
	maxLimit      int
	strictTypes   bool
	speciesPoints map[string]int64
	collections   map[string][]string
	extraDefs     []model.AchievementDefinition

	started bool
	logger  logger.Logger
}

// New constructs a Service over store. Start must be called before use.
func New(store repository.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	s := &Service{
		store:       store,
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100_000,
		dedupeSize:  500_000,
		retries:     3,
		maxLimit:    100,
		evaluator:   achievement.NewEvaluator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s, nil
}

// Start bootstraps the catalog and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	catalog, err := achievement.NewCatalog(s.store, achievement.WithStrictTypes(s.strictTypes))
	if err != nil {
		return err
	}
	if err := catalog.Bootstrap(ctx, mergeDefinitions(achievement.DefaultDefinitions(), s.extraDefs)); err != nil {
		return fmt.Errorf("bootstrap catalog: %w", err)
	}
	s.catalog = catalog
	s.counter = collection.NewSetCounter(s.collections)

	orchOpts := []discovery.Option{
		discovery.WithCollectionCounter(s.counter),
		discovery.WithPointsTable(progress.NewPointsTable(progress.WithSpeciesPoints(s.speciesPoints))),
	}
	if s.notifier != nil {
		orchOpts = append(orchOpts, discovery.WithNotifier(s.notifier))
	}
	s.orchestrator, err = discovery.New(s.store, catalog, orchOpts...)
	if err != nil {
		return err
	}

	lbOpts := []leaderboard.Option{leaderboard.WithMaxLimit(s.maxLimit)}
	if s.cache != nil {
		lbOpts = append(lbOpts, leaderboard.WithCache(s.cache))
	}
	s.ranks, err = leaderboard.NewService(s.store, lbOpts...)
	if err != nil {
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewSharded(s.workerCount, s.queueSize)
	s.pool = worker.NewPool(s.queue, worker.ProcessorFunc(s.process),
		worker.WithRetries(s.retries),
		worker.WithFailureHook(s.forget),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "progress service started",
		logger.Int("achievements", catalog.Len()),
		logger.Int("collections", s.counter.Len()),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queue.Cap()),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop drains the ingestion queue. The store is owned by the caller.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	s.logger.Info(ctx, "stopping progress service")
	return s.pool.Shutdown(ctx)
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// mergeDefinitions appends extra to base, replacing base entries by name.
func mergeDefinitions(base, extra []model.AchievementDefinition) []model.AchievementDefinition {
	out := make([]model.AchievementDefinition, 0, len(base)+len(extra))
	idx := make(map[string]int, len(base)+len(extra))
	for _, d := range append(append([]model.AchievementDefinition(nil), base...), extra...) {
		if i, ok := idx[d.Name]; ok {
			out[i] = d
			continue
		}
		idx[d.Name] = len(out)
		out = append(out, d)
	}
	return out
}
