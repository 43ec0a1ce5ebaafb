package discovery

import (
	"context"

	"github.com/cosnor/winged/internal/domain/model"
)

// Tx is the per-user unit of work the orchestrator writes through. Reads
// observe the writes already made in the same Tx.
type Tx interface {
	GetCollectionEntry(ctx context.Context, userID int64, speciesID string) (model.CollectionEntry, bool, error)
	PutCollectionEntry(ctx context.Context, entry model.CollectionEntry) error
	ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error)

	GetProgress(ctx context.Context, userID int64) (model.UserProgress, bool, error)
	PutProgress(ctx context.Context, p model.UserProgress) error

	ListUnlocks(ctx context.Context, userID int64) ([]model.AchievementUnlockRecord, error)
	// InsertUnlock stores rec unless (user, achievement, sequence) already
	// exists, in which case inserted is false and err is nil.
	InsertUnlock(ctx context.Context, rec model.AchievementUnlockRecord) (inserted bool, err error)
}

// Store runs fn atomically for one user. Calls for the same user are
// serialized. If fn returns an error nothing it wrote is kept.
type Store interface {
	WithinUser(ctx context.Context, userID int64, fn func(ctx context.Context, tx Tx) error) error
}

// Catalog supplies the achievement definitions to evaluate.
type Catalog interface {
	Definitions() ([]model.AchievementDefinition, error)
}

// CollectionCounter reports how many named species sets a collection completes.
type CollectionCounter interface {
	CompletedCount(owned []string) int64
}
