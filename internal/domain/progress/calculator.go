// Package progress holds the pure streak and level rules.
package progress

import (
	"math"
	"time"

	"github.com/cosnor/winged/internal/domain/model"
)

// HighConfidenceThreshold is the confidence at or above which an
// identification counts towards expertise.
const HighConfidenceThreshold = 0.8

const pointsPerLevelUnit = 100

// ApplyStreak advances a day streak with a discovery on newDate.
// Dates are compared as UTC calendar days. A same-day discovery keeps the
// streak, the next day extends it, anything else restarts it at 1.
func ApplyStreak(prevLast *time.Time, prevCurrent, prevLongest int, newDate time.Time) (current, longest int) {
	switch {
	case prevLast == nil:
		current = 1
	default:
		switch DaysBetween(*prevLast, newDate) {
		case 0:
			current = prevCurrent
			if current < 1 {
				current = 1
			}
		case 1:
			current = prevCurrent + 1
		default:
			current = 1
		}
	}
	longest = max(prevLongest, current)
	return current, longest
}

// DaysBetween returns the number of calendar days from a to b in UTC.
// The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	da := truncateDay(a)
	db := truncateDay(b)
	return int(db.Sub(da).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LevelForPoints returns floor(sqrt(points/100)) + 1. Negative points count as 0.
func LevelForPoints(points int64) int {
	if points <= 0 {
		return 1
	}
	return int(isqrt(points/pointsPerLevelUnit)) + 1
}

// isqrt returns floor(sqrt(n)) for n >= 0.
func isqrt(n int64) int64 {
	r := int64(math.Sqrt(float64(n)))
	// float rounding is off by at most one either way
	for r > 0 && r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}
	return r
}

// PointsForLevel returns the minimum total points that reach level.
// Levels past the int64 range saturate at math.MaxInt64.
func PointsForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	if n > math.MaxInt64/pointsPerLevelUnit/n {
		return math.MaxInt64
	}
	return n * n * pointsPerLevelUnit
}

// PointsToNextLevel returns how many more points are needed to level up.
func PointsToNextLevel(points int64) int64 {
	if points < 0 {
		points = 0
	}
	return PointsForLevel(LevelForPoints(points)+1) - points
}

// IsRare reports whether a tier counts towards rare species.
func IsRare(tier model.RarityTier) bool {
	switch tier {
	case model.RarityRare, model.RarityVeryRare, model.RarityLegendary:
		return true
	default:
		return false
	}
}

// IsHighConfidence reports whether confidence meets HighConfidenceThreshold.
func IsHighConfidence(confidence float64) bool {
	return confidence >= HighConfidenceThreshold
}
