// Package achievement evaluates achievement requirements and holds the catalog.
package achievement

import (
	"fmt"
	"math"

	"github.com/cosnor/winged/internal/domain/model"
)

// locationScale rounds coordinates to 3 decimals (about 100 m).
const locationScale = 1000

// Evaluator maps progress and a collection summary to achievement state.
// It never touches storage and never mutates its inputs.
type Evaluator struct{}

// NewEvaluator returns an Evaluator.
func NewEvaluator() Evaluator { return Evaluator{} }

// Current returns the measured counter for def. ok is false for a type the
// evaluator does not understand.
func (Evaluator) Current(p *model.UserProgress, s *model.CollectionSummary, def *model.AchievementDefinition) (value int64, ok bool) {
	switch def.Type {
	case model.TypeDiscoveryCount:
		return p.UniqueSpeciesCount, true
	case model.TypeStreak:
		return int64(p.LongestStreakDays), true
	case model.TypeRarity:
		return p.RareSpeciesCount, true
	case model.TypeCollection:
		return p.CollectionsCompleted, true
	case model.TypeExpertise:
		return p.HighConfidenceIdentifications, true
	case model.TypeLocation:
		if s == nil {
			return 0, true
		}
		return int64(CountDistinctLocations(s.Locations)), true
	default:
		return 0, false
	}
}

// IsMet reports whether def's requirement is satisfied. Unknown types are
// never met.
func (e Evaluator) IsMet(p *model.UserProgress, s *model.CollectionSummary, def *model.AchievementDefinition) bool {
	cur, ok := e.Current(p, s, def)
	if !ok {
		return false
	}
	return cur >= def.RequirementValue
}

// ProgressFraction returns min(1, current/required). It is exactly 1 only
// when IsMet is true.
func (e Evaluator) ProgressFraction(p *model.UserProgress, s *model.CollectionSummary, def *model.AchievementDefinition) float64 {
	cur, ok := e.Current(p, s, def)
	if !ok {
		return 0
	}
	if cur >= def.RequirementValue {
		return 1
	}
	if cur <= 0 {
		return 0
	}
	f := float64(cur) / float64(def.RequirementValue)
	if f >= 1 {
		f = math.Nextafter(1, 0)
	}
	return f
}

// Remaining returns how many more units are needed, 0 once met.
func (e Evaluator) Remaining(p *model.UserProgress, s *model.CollectionSummary, def *model.AchievementDefinition) int64 {
	cur, ok := e.Current(p, s, def)
	if !ok {
		return def.RequirementValue
	}
	return max(0, def.RequirementValue-cur)
}

// TimesEarned returns how many times a repeatable definition has been
// earned at the current counter. Non-repeatable definitions earn at most once.
func (e Evaluator) TimesEarned(p *model.UserProgress, s *model.CollectionSummary, def *model.AchievementDefinition) int {
	cur, ok := e.Current(p, s, def)
	if !ok || def.RequirementValue <= 0 || cur < def.RequirementValue {
		return 0
	}
	if !def.IsRepeatable {
		return 1
	}
	return int(cur / def.RequirementValue)
}

// Estimate returns a short description of what is left, e.g.
// "3 more species needed".
func (e Evaluator) Estimate(p *model.UserProgress, s *model.CollectionSummary, def *model.AchievementDefinition) string {
	if _, ok := e.Current(p, s, def); !ok {
		return ""
	}
	n := e.Remaining(p, s, def)
	if n == 0 {
		return "completed"
	}
	return fmt.Sprintf("%d more %s needed", n, unit(def.Type, n))
}

func unit(t model.AchievementType, n int64) string {
	one := n == 1
	switch t {
	case model.TypeDiscoveryCount:
		return "species"
	case model.TypeStreak:
		if one {
			return "streak day"
		}
		return "streak days"
	case model.TypeRarity:
		return "rare species"
	case model.TypeCollection:
		if one {
			return "completed collection"
		}
		return "completed collections"
	case model.TypeExpertise:
		if one {
			return "high-confidence identification"
		}
		return "high-confidence identifications"
	case model.TypeLocation:
		if one {
			return "location"
		}
		return "locations"
	default:
		return "units"
	}
}

// CountDistinctLocations counts coordinates after rounding to 3 decimals.
func CountDistinctLocations(locs []model.Location) int {
	type cell struct{ lat, lon int64 }
	seen := make(map[cell]struct{}, len(locs))
	for _, l := range locs {
		seen[cell{
			lat: int64(math.Round(l.Lat * locationScale)),
			lon: int64(math.Round(l.Lon * locationScale)),
		}] = struct{}{}
	}
	return len(seen)
}
