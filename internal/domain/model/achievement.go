package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Definition validation errors.
var (
	ErrInvalidTier        = errors.New("unknown achievement tier")
	ErrInvalidName        = errors.New("achievement name must not be empty")
	ErrInvalidRequirement = errors.New("requirement_value must be positive")
	ErrInvalidBasePoints  = errors.New("base_points must not be negative")
)

// achievementNamespace seeds deterministic achievement ids.
var achievementNamespace = uuid.MustParse("6f1d7c1e-3b0a-5b8e-9a55-2f7f6c0b9d41")

// AchievementType selects how a definition's requirement is measured.
type AchievementType string

// Achievement types.
const (
	TypeDiscoveryCount AchievementType = "discovery_count"
	TypeStreak         AchievementType = "streak"
	TypeRarity         AchievementType = "rarity"
	TypeCollection     AchievementType = "collection"
	TypeExpertise      AchievementType = "expertise"
	TypeLocation       AchievementType = "location"
)

// AchievementTypes lists every type the evaluator understands.
var AchievementTypes = []AchievementType{
	TypeDiscoveryCount, TypeStreak, TypeRarity, TypeCollection, TypeExpertise, TypeLocation,
}

// Known reports whether the evaluator understands t.
func (t AchievementType) Known() bool {
	for _, k := range AchievementTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Tier scales an achievement's base points.
type Tier string

// Tiers.
const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

var tierMultipliers = map[Tier]float64{
	TierBronze:   1.0,
	TierSilver:   1.5,
	TierGold:     2.0,
	TierPlatinum: 3.0,
	TierDiamond:  5.0,
}

// ParseTier normalizes s into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierMultipliers[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

// Multiplier returns the fixed point multiplier. Unknown tiers scale by 1.
func (t Tier) Multiplier() float64 {
	if m, ok := tierMultipliers[t]; ok {
		return m
	}
	return 1.0
}

// AchievementDefinition is one catalog entry.
type AchievementDefinition struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Type             AchievementType `json:"type"`
	Tier             Tier            `json:"tier"`
	BasePoints       int64           `json:"base_points"`
	RequirementValue int64           `json:"requirement_value"`
	IsHidden         bool            `json:"is_hidden"`
	IsRepeatable     bool            `json:"is_repeatable"`
}

// AchievementID derives the stable id for an achievement name.
func AchievementID(name string) string {
	return uuid.NewSHA1(achievementNamespace, []byte(strings.TrimSpace(name))).String()
}

// Validate checks the fields every definition needs. The type is not
// checked here; unknown types are tolerated unless the catalog is strict.
func (d *AchievementDefinition) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return ErrInvalidName
	case d.RequirementValue <= 0:
		return fmt.Errorf("%w: %s", ErrInvalidRequirement, d.Name)
	case d.BasePoints < 0:
		return fmt.Errorf("%w: %s", ErrInvalidBasePoints, d.Name)
	}
	if _, ok := tierMultipliers[d.Tier]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTier, d.Tier)
	}
	return nil
}

// AwardPoints is BasePoints scaled by the tier multiplier, rounded.
func (d *AchievementDefinition) AwardPoints() int64 {
	return int64(math.Round(float64(d.BasePoints) * d.Tier.Multiplier()))
}

// AchievementUnlockRecord marks an achievement earned by a user.
// Sequence is 1 for non-repeatable achievements.
type AchievementUnlockRecord struct {
	ID                    string    `json:"id"`
	UserID                int64     `json:"user_id"`
	AchievementID         string    `json:"achievement_id"`
	Sequence              int       `json:"sequence"`
	UnlockedAt            time.Time `json:"unlocked_at"`
	ProgressValueAtUnlock int64     `json:"progress_value_at_unlock"`
	PointsAwarded         int64     `json:"points_awarded"`
}
