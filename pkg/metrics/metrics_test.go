package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithPrefix("test", "engine"),
				WithLatencyBuckets(1, 5, 10),
				WithConstLabels(prometheus.Labels{"store": "memory"}),
				WithRegisterer(registry),
			)

			Convey("Then its collectors are registered under the prefix with the const labels", func() {
				So(m, ShouldNotBeNil)
				So(m.latencyBuckets, ShouldResemble, []float64{1, 5, 10})
				m.levelUps.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
					if f.GetName() == "test_engine_level_ups_total" {
						labels := f.GetMetric()[0].GetLabel()
						So(len(labels), ShouldEqual, 1)
						So(labels[0].GetName(), ShouldEqual, "store")
						So(labels[0].GetValue(), ShouldEqual, "memory")
					}
				}
				So(names, ShouldContain, "test_engine_level_ups_total")
			})
		})

		Convey("When registering twice on the same registry", func() {
			NewManager(WithRegisterer(registry))

			Convey("Then promauto panics on the duplicate", func() {
				So(func() { NewManager(WithRegisterer(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording discovery outcomes", func() {
			before := testutil.ToFloat64(globalManager.discoveriesProcessed)
			RecordDiscoveryProcessed()
			RecordDiscoveryProcessed()

			Convey("Then the counter advances", func() {
				So(testutil.ToFloat64(globalManager.discoveriesProcessed), ShouldEqual, before+2)
			})
		})

		Convey("When recording labelled counters", func() {
			RecordAchievementUnlocked("streak", "gold")
			RecordPointsAwarded("species", 50)
			RecordDiscoveryRejected("validation")

			Convey("Then the labelled series exist", func() {
				So(testutil.ToFloat64(globalManager.achievementsUnlocked.WithLabelValues("streak", "gold")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.pointsAwarded.WithLabelValues("species")), ShouldBeGreaterThanOrEqualTo, 50)
				So(testutil.ToFloat64(globalManager.discoveriesRejected.WithLabelValues("validation")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating queue size against capacity", func() {
			UpdateQueueSize(25, 100)

			Convey("Then utilization is derived", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 25)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.25)
			})
		})

		Convey("When recording everything else", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordDiscoveryDuplicate()
					RecordNewSpecies()
					RecordSighting()
					RecordProcessingLatency(3)
					RecordProcessingError()
					RecordUnlockConflict()
					RecordLevelUp()
					UpdateTotalUsers(10)
					RecordNotificationSent("achievement")
					RecordNotificationFailed("level_up")
					UpdateQueueCapacity(100)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError("full")
					UpdateWorkerCount(4)
					RecordWorkerProcessingLatency(2)
					RecordWorkerError()
					RecordWorkerRetry()
					RecordStoreTxLatency(1)
					RecordStoreQueryLatency(1)
					RecordStoreError("within_user")
					RecordCacheError("rank")
					RecordHTTPRequest("/progress", "GET", "200")
					RecordHTTPRequestDuration("/progress", "GET", "200", 1)
					RecordErrorByEndpoint("/progress", "GET", "not_found")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(8)
					RecordSystemGCPauseTime(0.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering from the custom registry", func() {
			_, err := GetRegistry().Gather()

			Convey("Then it succeeds", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
