// Package leaderboard answers ranking queries over user progress.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
	"github.com/cosnor/winged/pkg/logger"
	"github.com/cosnor/winged/pkg/metrics"
)

const defaultMaxLimit = 1000

// Reader is the read side the service ranks from.
type Reader interface {
	// TopN returns up to limit users by metric desc, user id asc.
	TopN(ctx context.Context, metric model.Metric, limit int) ([]types.Entry, error)
	// CountAbove returns how many users have metric strictly greater than value.
	CountAbove(ctx context.Context, metric model.Metric, value int64) (int64, error)
}

// ProgressReader loads a user's committed progress.
type ProgressReader interface {
	GetProgress(ctx context.Context, userID int64) (model.UserProgress, bool, error)
}

// Store is what the service needs from persistence.
type Store interface {
	Reader
	ProgressReader
}

// Service answers leaderboard and rank queries. It never takes per-user
// locks, so results may trail concurrent writes.
type Service struct {
	store    Store
	cache    Reader
	maxLimit int
	log      logger.Logger
}

// NewService creates a leaderboard service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilReader
	}
	s := &Service{store: store, maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("leaderboard")
	}
	return s, nil
}

// Leaderboard returns the top limit users by metric with competition ranks.
func (s *Service) Leaderboard(ctx context.Context, metric model.Metric, limit int) ([]types.Entry, error) {
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidMetric, metric)
	}
	if limit < 1 || limit > s.maxLimit {
		return nil, fmt.Errorf("%w: %d (1..%d)", ErrInvalidLimit, limit, s.maxLimit)
	}

	var (
		entries []types.Entry
		err     error
	)
	if s.cache != nil {
		entries, err = s.cache.TopN(ctx, metric, limit)
		if err != nil {
			metrics.RecordCacheError("top_n")
			s.log.Warn(ctx, "leaderboard cache read failed, using store", logger.Error(err))
			entries = nil
		}
	}
	if entries == nil {
		entries, err = s.store.TopN(ctx, metric, limit)
		if err != nil {
			return nil, fmt.Errorf("top %d by %s: %w", limit, metric, err)
		}
	}
	AssignCompetitionRanks(entries)
	return entries, nil
}

// Rank returns the user's value and competition rank for metric. A user
// with no progress is ranked with value 0.
func (s *Service) Rank(ctx context.Context, userID int64, metric model.Metric) (types.Entry, error) {
	if !metric.Valid() {
		return types.Entry{}, fmt.Errorf("%w: %q", model.ErrInvalidMetric, metric)
	}
	if userID <= 0 {
		return types.Entry{}, ErrInvalidUser
	}
	p, _, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return types.Entry{}, fmt.Errorf("get progress %d: %w", userID, err)
	}
	value := metric.Value(&p)

	above, err := s.countAbove(ctx, metric, value)
	if err != nil {
		return types.Entry{}, err
	}
	return types.Entry{Rank: int(above) + 1, UserID: userID, Value: value}, nil
}

func (s *Service) countAbove(ctx context.Context, metric model.Metric, value int64) (int64, error) {
	if s.cache != nil {
		n, err := s.cache.CountAbove(ctx, metric, value)
		if err == nil {
			return n, nil
		}
		metrics.RecordCacheError("count_above")
		s.log.Warn(ctx, "rank cache read failed, using store", logger.Error(err))
	}
	n, err := s.store.CountAbove(ctx, metric, value)
	if err != nil {
		return 0, fmt.Errorf("count above %d by %s: %w", value, metric, err)
	}
	return n, nil
}

// AssignCompetitionRanks fills Rank on entries sorted by value desc.
// Ties share a rank and the following rank skips ahead (1, 1, 3).
func AssignCompetitionRanks(entries []types.Entry) {
	for i := range entries {
		if i > 0 && entries[i].Value == entries[i-1].Value {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
