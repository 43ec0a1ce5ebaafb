package testevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cosnor/winged/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
	settlePollInterval  = 100 * time.Millisecond
	percentage          = 100
)

// ErrNotSettled is returned when the ingestion queue does not drain in time.
var ErrNotSettled = errors.New("ingestion queue did not drain")

// Run executes the complete load test and returns the collected statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("testevents")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting winged load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.String("metric", cfg.Metric),
	)

	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	events := generateEvents(cfg, time.Now())
	stats.EventsGenerated = len(events)

	if err := submitEvents(ctx, c, cfg, events, stats); err != nil {
		return stats, fmt.Errorf("event submission failed: %w", err)
	}
	if err := waitSettled(ctx, c, cfg.Settle); err != nil {
		return stats, err
	}

	users := userIDs(events)
	ranks, err := retrieveRanks(ctx, c, cfg, users)
	if err != nil {
		return stats, fmt.Errorf("rank retrieval failed: %w", err)
	}
	stats.RankingsRetrieved = len(ranks)

	board, err := c.leaderboard(ctx, cfg.Metric, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(board)

	if err := verifyResults(ranks, board); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	log.Info(ctx, "rankings verified", logger.Int("users", len(ranks)), logger.Int("leaderboard", len(board)))

	if cfg.OutputFile != "" {
		if err := saveEvents(cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// submitEvents posts events with cfg.Workers concurrent requests.
func submitEvents(ctx context.Context, c *client, cfg *Config, events []Event, stats *Stats) error {
	var counts [outcomeFailed + 1]atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i := range events {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			counts[c.submit(gctx, &events[i])].Add(1)
			return nil
		})
	}
	err := g.Wait()

	stats.EventsSuccessful = int(counts[outcomeAccepted].Load())
	stats.EventsDuplicate = int(counts[outcomeDuplicate].Load())
	stats.EventsRejected = int(counts[outcomeRejected].Load())
	stats.EventsFailed = int(counts[outcomeFailed].Load())
	stats.EventsSubmitted = stats.EventsSuccessful + stats.EventsDuplicate + stats.EventsRejected + stats.EventsFailed

	logger.Named("testevents").Info(ctx, "event submission completed",
		logger.Int("successful", stats.EventsSuccessful),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failed", stats.EventsFailed),
	)
	return err
}

// waitSettled polls /stats until nothing is pending on two consecutive reads
// or limit passes.
func waitSettled(ctx context.Context, c *client, limit time.Duration) error {
	deadline := time.Now().Add(limit)
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	idle := 0
	for {
		n, err := c.pending(ctx)
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}
		if n == 0 {
			idle++
			if idle == 2 {
				return nil
			}
		} else {
			idle = 0
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d pending after %s", ErrNotSettled, n, limit)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// retrieveRanks fetches the rank of every user concurrently.
func retrieveRanks(ctx context.Context, c *client, cfg *Config, users []int64) ([]Entry, error) {
	ranks := make([]Entry, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, id := range users {
		g.Go(func() error {
			e, err := c.rank(gctx, id, cfg.Metric)
			if err != nil {
				return fmt.Errorf("rank of user %d: %w", id, err)
			}
			ranks[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ranks, nil
}

// saveEvents writes events as a JSON array.
func saveEvents(filename string, events []Event) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * percentage
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Named("testevents").Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("rankingsRetrieved", stats.RankingsRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond),
	)
}
