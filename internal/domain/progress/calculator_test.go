package progress_test

import (
	"math"
	"testing"
	"time"

	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/progress"
	. "github.com/smartystreets/goconvey/convey"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 14, 30, 0, 0, time.UTC)
}

func TestApplyStreak(t *testing.T) {
	Convey("Given a user with no previous discovery", t, func() {
		cur, longest := progress.ApplyStreak(nil, 0, 0, day(1))
		So(cur, ShouldEqual, 1)
		So(longest, ShouldEqual, 1)
	})

	Convey("Given discoveries on d, d+1, d+2, d+2, d+4", t, func() {
		var last *time.Time
		cur, longest := 0, 0
		var got [][2]int
		for _, d := range []int{1, 2, 3, 3, 5} {
			ts := day(d)
			cur, longest = progress.ApplyStreak(last, cur, longest, ts)
			last = &ts
			got = append(got, [2]int{cur, longest})
		}

		Convey("Then the streak grows, holds, then resets while keeping the high-water mark", func() {
			So(got, ShouldResemble, [][2]int{{1, 1}, {2, 2}, {3, 3}, {3, 3}, {1, 3}})
		})
	})

	Convey("Given a discovery earlier than the last one", t, func() {
		last := day(10)
		cur, longest := progress.ApplyStreak(&last, 4, 6, day(8))
		So(cur, ShouldEqual, 1)
		So(longest, ShouldEqual, 6)
	})

	Convey("Given discoveries late at night and early next morning", t, func() {
		last := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
		next := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)
		cur, _ := progress.ApplyStreak(&last, 2, 2, next)
		So(cur, ShouldEqual, 3)
	})
}

func TestLevelForPoints(t *testing.T) {
	Convey("Levels follow floor(sqrt(points/100)) + 1", t, func() {
		cases := map[int64]int{
			-5:    1,
			0:     1,
			99:    1,
			100:   2,
			399:   2,
			400:   3,
			899:   3,
			900:   4,
			10000: 11,
		}
		for pts, lvl := range cases {
			So(progress.LevelForPoints(pts), ShouldEqual, lvl)
		}
	})

	Convey("Levels never decrease as points grow", t, func() {
		prev := progress.LevelForPoints(0)
		for p := int64(0); p <= 5000; p += 7 {
			l := progress.LevelForPoints(p)
			So(l, ShouldBeGreaterThanOrEqualTo, prev)
			prev = l
		}
	})

	Convey("PointsForLevel inverts LevelForPoints", t, func() {
		for lvl := 1; lvl <= 20; lvl++ {
			So(progress.LevelForPoints(progress.PointsForLevel(lvl)), ShouldEqual, lvl)
		}
		So(progress.PointsToNextLevel(0), ShouldEqual, 100)
		So(progress.PointsToNextLevel(150), ShouldEqual, 250)
	})

	Convey("Extreme totals stay within int64", t, func() {
		So(progress.LevelForPoints(math.MaxInt64), ShouldEqual, 303700050)
		So(progress.LevelForPoints(99_999_999_999_999_999), ShouldEqual, 31622777)
		So(progress.PointsForLevel(303700050), ShouldEqual, int64(303700049*303700049*100))
		So(progress.PointsForLevel(303700051), ShouldEqual, int64(math.MaxInt64))
		So(progress.PointsForLevel(math.MaxInt32), ShouldEqual, int64(math.MaxInt64))
		So(progress.PointsToNextLevel(math.MaxInt64), ShouldEqual, 0)
		for _, lvl := range []int{1000, 65536, 3037000, 303700050} {
			So(progress.LevelForPoints(progress.PointsForLevel(lvl)), ShouldEqual, lvl)
			So(progress.LevelForPoints(progress.PointsForLevel(lvl)-1), ShouldEqual, lvl-1)
		}
	})
}

func TestRarityAndConfidence(t *testing.T) {
	Convey("Rare tiers are rare, very_rare and legendary", t, func() {
		So(progress.IsRare(model.RarityCommon), ShouldBeFalse)
		So(progress.IsRare(model.RarityUncommon), ShouldBeFalse)
		So(progress.IsRare(model.RarityRare), ShouldBeTrue)
		So(progress.IsRare(model.RarityVeryRare), ShouldBeTrue)
		So(progress.IsRare(model.RarityLegendary), ShouldBeTrue)
	})

	Convey("High confidence starts at 0.8", t, func() {
		So(progress.IsHighConfidence(0.79), ShouldBeFalse)
		So(progress.IsHighConfidence(0.8), ShouldBeTrue)
		So(progress.IsHighConfidence(1), ShouldBeTrue)
	})
}

func TestPointsTable(t *testing.T) {
	Convey("Given the default points table", t, func() {
		tbl := progress.NewPointsTable()
		So(tbl.Points(model.RarityCommon), ShouldEqual, 10)
		So(tbl.Points(model.RarityUncommon), ShouldEqual, 25)
		So(tbl.Points(model.RarityRare), ShouldEqual, 50)
		So(tbl.Points(model.RarityVeryRare), ShouldEqual, 100)
		So(tbl.Points(model.RarityLegendary), ShouldEqual, 200)
		for _, tier := range model.RarityTiers {
			So(tbl.Points(tier), ShouldEqual, progress.SpeciesPoints(tier))
		}
		So(progress.SpeciesPoints("mythic"), ShouldEqual, 0)

		Convey("When overrides are configured", func() {
			tbl := progress.NewPointsTable(progress.WithSpeciesPoints(map[string]int64{
				"Legendary": 500,
				"mythic":    9000,
				"common":    -1,
				"rare":      math.MaxInt64,
			}))

			Convey("Then valid overrides apply and the rest are ignored", func() {
				So(tbl.Points(model.RarityLegendary), ShouldEqual, 500)
				So(tbl.Points(model.RarityCommon), ShouldEqual, 10)
				So(tbl.Points("mythic"), ShouldEqual, 0)
				So(tbl.Points(model.RarityRare), ShouldEqual, progress.MaxSpeciesPoints)
			})
		})
	})
}
