package service

import (
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/leaderboard"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of queue shards and workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the total capacity of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the event id dedupe cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithProcessRetries bounds worker retries of a failed discovery.
func WithProcessRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithMaxLeaderboardLimit caps leaderboard page sizes.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithSpeciesPoints overrides points per rarity tier.
func WithSpeciesPoints(points map[string]int64) Option {
	return func(s *Service) { s.speciesPoints = points }
}

// WithCollections sets the named species sets counted by collection
// achievements.
func WithCollections(sets map[string][]string) Option {
	return func(s *Service) { s.collections = sets }
}

// WithAchievements adds definitions to the built-in catalog. A definition
// with the name of a built-in one replaces it.
func WithAchievements(defs []model.AchievementDefinition) Option {
	return func(s *Service) { s.extraDefs = append(s.extraDefs, defs...) }
}

// WithStrictTypes makes catalog bootstrap reject unknown achievement types.
func WithStrictTypes(strict bool) Option {
	return func(s *Service) { s.strictTypes = strict }
}

// WithNotifier sets where achievement and level-up notifications go.
func WithNotifier(n discovery.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLeaderboardCache sets a read-through leaderboard mirror.
func WithLeaderboardCache(r leaderboard.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.cache = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
