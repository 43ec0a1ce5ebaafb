package model

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDiscoveryEventValidate(t *testing.T) {
	Convey("Given a discovery event", t, func() {
		ev := DiscoveryEvent{
			UserID:     7,
			SpeciesID:  "erithacus-rubecula",
			Confidence: 0.92,
			Timestamp:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
			Rarity:     RarityCommon,
		}

		Convey("A complete event is valid", func() {
			So(ev.Validate(), ShouldBeNil)
		})

		Convey("Confidence bounds are inclusive", func() {
			ev.Confidence = 0
			So(ev.Validate(), ShouldBeNil)
			ev.Confidence = 1
			So(ev.Validate(), ShouldBeNil)
			ev.Confidence = 1.01
			So(errors.Is(ev.Validate(), ErrInvalidConfidence), ShouldBeTrue)
		})

		Convey("Non-positive user ids are rejected", func() {
			ev.UserID = 0
			So(errors.Is(ev.Validate(), ErrInvalidUserID), ShouldBeTrue)
		})

		Convey("Blank species ids are rejected", func() {
			ev.SpeciesID = "  "
			So(errors.Is(ev.Validate(), ErrInvalidSpeciesID), ShouldBeTrue)
		})

		Convey("Unknown rarity is rejected", func() {
			ev.Rarity = "mythic"
			So(errors.Is(ev.Validate(), ErrInvalidRarity), ShouldBeTrue)
		})

		Convey("Out of range coordinates are rejected", func() {
			ev.Location = &Location{Lat: 91, Lon: 0}
			So(errors.Is(ev.Validate(), ErrInvalidLocation), ShouldBeTrue)
			ev.Location = &Location{Lat: -90, Lon: 180}
			So(ev.Validate(), ShouldBeNil)
		})
	})
}

func TestUserProgressDerived(t *testing.T) {
	Convey("Derived ratios guard against zero denominators", t, func() {
		p := NewUserProgress(1)
		So(p.CurrentLevel, ShouldEqual, 1)
		So(p.AccuracyRate(), ShouldEqual, 0)
		So(p.AveragePointsPerSpecies(), ShouldEqual, 0)

		p.TotalIdentifications = 4
		p.HighConfidenceIdentifications = 3
		p.TotalPoints = 75
		p.UniqueSpeciesCount = 3
		So(p.AccuracyRate(), ShouldEqual, 0.75)
		So(p.AveragePointsPerSpecies(), ShouldEqual, 25)
	})

	Convey("Clone does not share the last discovery date", t, func() {
		d := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		p := UserProgress{UserID: 1, LastDiscoveryDate: &d}
		c := p.Clone()
		*c.LastDiscoveryDate = d.AddDate(0, 0, 1)
		So(p.LastDiscoveryDate.Equal(d), ShouldBeTrue)
	})
}

func TestTierAndAwardPoints(t *testing.T) {
	Convey("Tier multipliers are fixed", t, func() {
		So(TierBronze.Multiplier(), ShouldEqual, 1.0)
		So(TierSilver.Multiplier(), ShouldEqual, 1.5)
		So(TierGold.Multiplier(), ShouldEqual, 2.0)
		So(TierPlatinum.Multiplier(), ShouldEqual, 3.0)
		So(TierDiamond.Multiplier(), ShouldEqual, 5.0)
	})

	Convey("Awarded points round the scaled base", t, func() {
		d := AchievementDefinition{Name: "x", Tier: TierSilver, BasePoints: 25, RequirementValue: 1}
		So(d.AwardPoints(), ShouldEqual, 38)
		d.Tier = TierDiamond
		So(d.AwardPoints(), ShouldEqual, 125)
	})

	Convey("Achievement ids are stable per name", t, func() {
		So(AchievementID("First Flight"), ShouldEqual, AchievementID(" First Flight "))
		So(AchievementID("First Flight"), ShouldNotEqual, AchievementID("Second Flight"))
	})
}

func TestMetricValue(t *testing.T) {
	Convey("Metrics read the matching counter", t, func() {
		p := UserProgress{TotalPoints: 90, UniqueSpeciesCount: 4, LongestStreakDays: 3, CurrentStreakDays: 1, RareSpeciesCount: 2, AchievementsUnlockedCount: 5}
		So(MetricTotalPoints.Value(&p), ShouldEqual, 90)
		So(MetricUniqueSpecies.Value(&p), ShouldEqual, 4)
		So(MetricLongestStreak.Value(&p), ShouldEqual, 3)
		So(MetricCurrentStreak.Value(&p), ShouldEqual, 1)
		So(MetricRareSpecies.Value(&p), ShouldEqual, 2)
		So(MetricAchievementsUnlocked.Value(&p), ShouldEqual, 5)

		m, err := ParseMetric("")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, MetricTotalPoints)
		_, err = ParseMetric("wingspan")
		So(errors.Is(err, ErrInvalidMetric), ShouldBeTrue)
	})
}
