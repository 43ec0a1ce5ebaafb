package testevents

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateEvents(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := &Config{Users: 20, NumEvents: 500, Seed: 7}
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		events := generateEvents(cfg, now)

		Convey("Then every event is well formed", func() {
			So(len(events), ShouldEqual, 500)
			ids := make(map[string]struct{}, len(events))
			for _, ev := range events {
				ids[ev.EventID] = struct{}{}
				So(ev.UserID, ShouldBeBetweenOrEqual, 1, 20)
				So(ev.Confidence, ShouldBeBetweenOrEqual, minConfidence, 1)
				So(ev.SpeciesID, ShouldNotBeEmpty)
				ts, err := time.Parse(time.RFC3339, ev.Timestamp)
				So(err, ShouldBeNil)
				So(ts.After(now), ShouldBeFalse)
			}
			So(len(ids), ShouldEqual, 500)
		})

		Convey("Then the same seed yields the same sightings", func() {
			again := generateEvents(cfg, now)
			for i := range events {
				So(again[i].UserID, ShouldEqual, events[i].UserID)
				So(again[i].SpeciesID, ShouldEqual, events[i].SpeciesID)
				So(again[i].Timestamp, ShouldEqual, events[i].Timestamp)
			}
		})

		Convey("Then userIDs lists each user once in order", func() {
			users := userIDs(events)
			So(len(users), ShouldBeLessThanOrEqualTo, 20)
			for i := 1; i < len(users); i++ {
				So(users[i], ShouldBeGreaterThan, users[i-1])
			}
		})
	})
}
