// Package repository persists progress, collections, unlocks and the
// achievement catalog.
package repository

import (
	"context"
	"errors"

	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
)

// Sentinel errors.
var (
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrClosed       = errors.New("store closed")
)

// Store is everything the engine needs from persistence.
type Store interface {
	discovery.Store

	UpsertAchievements(ctx context.Context, defs []model.AchievementDefinition) error
	ListAchievements(ctx context.Context) ([]model.AchievementDefinition, error)

	// GetProgress returns the committed progress of a user. found is false
	// for a user with no discoveries.
	GetProgress(ctx context.Context, userID int64) (p model.UserProgress, found bool, err error)
	ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error)
	ListUnlocks(ctx context.Context, userID int64) ([]model.AchievementUnlockRecord, error)

	// TopN returns up to limit users ordered by metric desc, user id asc.
	// Ranks are not filled in.
	TopN(ctx context.Context, metric model.Metric, limit int) ([]types.Entry, error)
	// CountAbove returns how many users have metric strictly greater than value.
	CountAbove(ctx context.Context, metric model.Metric, value int64) (int64, error)
	// CountUsers returns the number of users with progress.
	CountUsers(ctx context.Context) (int64, error)

	Close() error
}

// Observer is told about every committed progress write.
type Observer interface {
	ProgressCommitted(ctx context.Context, p model.UserProgress)
}
