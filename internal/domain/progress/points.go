package progress

import "github.com/cosnor/winged/internal/domain/model"

var defaultSpeciesPoints = map[model.RarityTier]int64{
	model.RarityCommon:    10,
	model.RarityUncommon:  25,
	model.RarityRare:      50,
	model.RarityVeryRare:  100,
	model.RarityLegendary: 200,
}

// Option applies a configuration option to a PointsTable.
type Option func(*PointsTable)

// MaxSpeciesPoints caps a configured per-tier award.
const MaxSpeciesPoints int64 = 1_000_000

// WithSpeciesPoints overrides the points awarded per rarity tier.
// Unknown tiers and negative values are ignored, values above
// MaxSpeciesPoints are clamped.
func WithSpeciesPoints(points map[string]int64) Option {
	return func(t *PointsTable) {
		for k, v := range points {
			tier, err := model.ParseRarityTier(k)
			if err != nil || v < 0 {
				continue
			}
			t.points[tier] = min(v, MaxSpeciesPoints)
		}
	}
}

// PointsTable maps rarity tiers to the points a new species is worth.
type PointsTable struct {
	points map[model.RarityTier]int64
}

// NewPointsTable creates a table seeded with the default values.
func NewPointsTable(opts ...Option) *PointsTable {
	t := &PointsTable{points: make(map[model.RarityTier]int64, len(model.RarityTiers))}
	for _, tier := range model.RarityTiers {
		t.points[tier] = SpeciesPoints(tier)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Points returns the points for tier, 0 for an unknown tier.
func (t *PointsTable) Points(tier model.RarityTier) int64 {
	return t.points[tier]
}

// SpeciesPoints returns the default points for a newly discovered species,
// 0 for an unknown tier.
func SpeciesPoints(tier model.RarityTier) int64 {
	return defaultSpeciesPoints[tier]
}
