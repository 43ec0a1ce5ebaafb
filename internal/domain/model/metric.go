package model

import (
	"errors"
	"fmt"
)

// ErrInvalidMetric is returned for an unknown leaderboard metric.
var ErrInvalidMetric = errors.New("unknown leaderboard metric")

// Metric names a UserProgress counter users can be ranked by.
type Metric string

// Leaderboard metrics.
const (
	MetricTotalPoints          Metric = "total_points"
	MetricUniqueSpecies        Metric = "unique_species_count"
	MetricAchievementsUnlocked Metric = "achievements_unlocked_count"
	MetricCurrentStreak        Metric = "current_streak_days"
	MetricLongestStreak        Metric = "longest_streak_days"
	MetricRareSpecies          Metric = "rare_species_count"
)

// Metrics lists every rankable metric.
var Metrics = []Metric{
	MetricTotalPoints,
	MetricUniqueSpecies,
	MetricAchievementsUnlocked,
	MetricCurrentStreak,
	MetricLongestStreak,
	MetricRareSpecies,
}

// ParseMetric validates s. An empty string selects total_points.
func ParseMetric(s string) (Metric, error) {
	if s == "" {
		return MetricTotalPoints, nil
	}
	m := Metric(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
	}
	return m, nil
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	for _, k := range Metrics {
		if m == k {
			return true
		}
	}
	return false
}

// Value extracts the metric from p. Unknown metrics read as 0.
func (m Metric) Value(p *UserProgress) int64 {
	switch m {
	case MetricTotalPoints:
		return p.TotalPoints
	case MetricUniqueSpecies:
		return p.UniqueSpeciesCount
	case MetricAchievementsUnlocked:
		return p.AchievementsUnlockedCount
	case MetricCurrentStreak:
		return int64(p.CurrentStreakDays)
	case MetricLongestStreak:
		return int64(p.LongestStreakDays)
	case MetricRareSpecies:
		return p.RareSpeciesCount
	default:
		return 0
	}
}
