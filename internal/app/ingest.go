package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cosnor/winged/internal/adapters/mq/queue"
	"github.com/cosnor/winged/internal/domain/dedupe"
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
	"github.com/cosnor/winged/pkg/logger"
	"github.com/cosnor/winged/pkg/metrics"
)

// ProcessDiscovery applies ev synchronously and returns what changed.
func (s *Service) ProcessDiscovery(ctx context.Context, ev model.DiscoveryEvent) (types.DiscoveryResult, error) { //nolint:gocritic // hugeParam
	if err := s.running(); err != nil {
		return types.DiscoveryResult{}, err
	}
	res, err := s.orchestrator.ProcessDiscovery(ctx, ev)
	if err != nil {
		return types.DiscoveryResult{}, err
	}
	return s.toResult(&res), nil
}

// Enqueue validates ev and queues it for the worker pool. duplicate is true
// when the event id was already accepted; nothing is queued then.
func (s *Service) Enqueue(ctx context.Context, ev model.DiscoveryEvent) (duplicate bool, err error) { //nolint:gocritic // hugeParam
	if err := s.running(); err != nil {
		return false, err
	}
	if err := ev.Validate(); err != nil {
		metrics.RecordDiscoveryRejected("validation")
		return false, fmt.Errorf("%w: %w", discovery.ErrValidation, err)
	}

	key := eventKey(&ev)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordDiscoveryDuplicate()
		s.logger.Debug(ctx, "duplicate event skipped",
			logger.String("key", key),
		)
		return true, nil
	}

	if err := s.queue.Enqueue(ctx, ev); err != nil {
		s.deduper.Unrecord(ctx, key)
		switch {
		case errors.Is(err, queue.ErrFull):
			return false, ErrBackpressure
		case errors.Is(err, queue.ErrClosed):
			return false, ErrNotStarted
		default:
			return false, err
		}
	}
	return false, nil
}

func (s *Service) process(ctx context.Context, ev model.DiscoveryEvent) error { //nolint:gocritic // hugeParam
	_, err := s.orchestrator.ProcessDiscovery(ctx, ev)
	return err
}

// forget lets a client resubmit an event the workers gave up on.
func (s *Service) forget(ctx context.Context, ev model.DiscoveryEvent, _ error) { //nolint:gocritic // hugeParam
	s.deduper.Unrecord(ctx, eventKey(&ev))
}

// eventKey falls back to the event content when the client sent no id.
func eventKey(ev *model.DiscoveryEvent) string {
	if ev.EventID != "" {
		return dedupe.Key(ev.UserID, ev.EventID)
	}
	return dedupe.Key(ev.UserID, ev.SpeciesID+"@"+strconv.FormatInt(ev.Timestamp.UnixNano(), 10))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}
	stats["queueLength"] = s.queue.Len()
	stats["inFlight"] = s.pool.InFlight()
	stats["pending"] = s.queue.Len() + s.pool.InFlight()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["achievements"] = s.catalog.Len()
	stats["collections"] = s.counter.Len()
	if n, err := s.store.CountUsers(ctx); err == nil {
		stats["totalUsers"] = n
		metrics.UpdateTotalUsers(int(n))
	} else {
		s.logger.Warn(ctx, "count users failed", logger.Error(err))
	}
	metrics.UpdateQueueSize(s.queue.Len(), s.queue.Cap())
	return stats
}
