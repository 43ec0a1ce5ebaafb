package discovery

import (
	"context"
	"time"

	"github.com/cosnor/winged/internal/domain/model"
)

// NotificationKind tells notifiers what happened.
type NotificationKind string

// Notification kinds.
const (
	KindAchievementUnlocked NotificationKind = "achievement_unlocked"
	KindLevelUp             NotificationKind = "level_up"
)

// Notification is emitted after a discovery commits.
type Notification struct {
	Kind        NotificationKind               `json:"kind"`
	UserID      int64                          `json:"user_id"`
	Achievement *model.AchievementDefinition   `json:"achievement,omitempty"`
	Unlock      *model.AchievementUnlockRecord `json:"unlock,omitempty"`
	OldLevel    int                            `json:"old_level,omitempty"`
	NewLevel    int                            `json:"new_level,omitempty"`
	TotalPoints int64                          `json:"total_points"`
	At          time.Time                      `json:"at"`
}

// Notifier receives notifications. Implementations used by the orchestrator
// must not block the caller for long; errors are logged and dropped.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
