// Package types contains the read shapes returned to callers of the engine.
package types

import "time"

// Entry represents a leaderboard entry.
type Entry struct {
	Rank   int   `json:"rank"`
	UserID int64 `json:"user_id"`
	Value  int64 `json:"value"`
}

// ProgressSnapshot is a user's progress with derived fields filled in.
type ProgressSnapshot struct {
	UserID                        int64      `json:"user_id"`
	TotalDiscoveries              int64      `json:"total_discoveries"`
	UniqueSpeciesCount            int64      `json:"unique_species_count"`
	TotalPoints                   int64      `json:"total_points"`
	CurrentLevel                  int        `json:"current_level"`
	PointsToNextLevel             int64      `json:"points_to_next_level"`
	CurrentStreakDays             int        `json:"current_streak_days"`
	LongestStreakDays             int        `json:"longest_streak_days"`
	LastDiscoveryDate             *time.Time `json:"last_discovery_date,omitempty"`
	AchievementsUnlockedCount     int64      `json:"achievements_unlocked_count"`
	RareSpeciesCount              int64      `json:"rare_species_count"`
	CollectionsCompleted          int64      `json:"collections_completed"`
	CompletedCollections          []string   `json:"completed_collections,omitempty"`
	TotalIdentifications          int64      `json:"total_identifications"`
	HighConfidenceIdentifications int64      `json:"high_confidence_identifications"`
	AccuracyRate                  float64    `json:"accuracy_rate"`
	AveragePointsPerSpecies       float64    `json:"average_points_per_species"`
}

// AchievementStatus describes one definition from a user's point of view.
type AchievementStatus struct {
	AchievementID    string     `json:"achievement_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Type             string     `json:"type"`
	Tier             string     `json:"tier"`
	RequirementValue int64      `json:"requirement_value"`
	CurrentValue     int64      `json:"current_value"`
	Progress         float64    `json:"progress"`
	Completed        bool       `json:"completed"`
	TimesEarned      int        `json:"times_earned,omitempty"`
	UnlockedAt       *time.Time `json:"unlocked_at,omitempty"`
	PointsAwarded    int64      `json:"points_awarded,omitempty"`
	Estimate         string     `json:"estimate,omitempty"`
}

// Unlock is a newly earned achievement in a discovery result.
type Unlock struct {
	AchievementID string    `json:"achievement_id"`
	Name          string    `json:"name"`
	Tier          string    `json:"tier"`
	Sequence      int       `json:"sequence"`
	PointsAwarded int64     `json:"points_awarded"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// DiscoveryResult is the outcome of processing one discovery.
type DiscoveryResult struct {
	IsNewSpecies  bool             `json:"is_new_species"`
	LevelUp       bool             `json:"level_up"`
	OldLevel      int              `json:"old_level"`
	NewLevel      int              `json:"new_level"`
	NewlyUnlocked []Unlock         `json:"newly_unlocked"`
	Progress      ProgressSnapshot `json:"progress"`
}
