package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/smartystreets/goconvey/convey"

	"github.com/cosnor/winged/internal/config"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/pkg/logger"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.WorkerCount = 2
	cfg.EventQueueSize = 64
	cfg.DedupeSize = 64
	cfg.NotifyTimeoutMS = 500
	return cfg
}

func sighting(userID int64, species string, at time.Time) model.DiscoveryEvent {
	return model.DiscoveryEvent{
		EventID:    species + "-" + at.Format(time.RFC3339),
		UserID:     userID,
		SpeciesID:  species,
		Confidence: 0.9,
		Timestamp:  at,
		Rarity:     model.RarityCommon,
	}
}

func TestBuild(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	convey.Convey("Given a memory-backed configuration", t, func() {
		ctx := context.Background()
		cfg := testConfig()

		convey.Convey("When the runtime is built", func() {
			rt, err := build(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { convey.So(rt.close(ctx), convey.ShouldBeNil) }()

			convey.Convey("Then the service is started without redis", func() {
				convey.So(rt.redis, convey.ShouldBeNil)
				convey.So(rt.mirror, convey.ShouldBeNil)
				stats := rt.svc.GetStats(ctx)
				convey.So(stats["started"], convey.ShouldBeTrue)
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
			})

			convey.Convey("Then discoveries are processed", func() {
				res, err := rt.svc.ProcessDiscovery(ctx, sighting(7, "turdus-merula", time.Now().UTC()))
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.IsNewSpecies, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "sqlite"
			_, err := build(ctx, cfg)

			convey.Convey("Then build fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When postgres is selected without a database url", func() {
			cfg.StoreDriver = config.StorePostgres
			cfg.DatabaseURL = ""
			_, err := build(ctx, cfg)

			convey.Convey("Then build fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})

	convey.Convey("Given a configuration with redis", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		cfg := testConfig()
		cfg.RedisAddr = mr.Addr()

		convey.Convey("When the runtime is built", func() {
			rt, err := build(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { convey.So(rt.close(ctx), convey.ShouldBeNil) }()

			sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			defer sub.Close()
			ps := sub.Subscribe(ctx, cfg.NotifyChannel)
			defer ps.Close()
			_, err = ps.Receive(ctx)
			convey.So(err, convey.ShouldBeNil)

			now := time.Now().UTC()
			_, err = rt.svc.ProcessDiscovery(ctx, sighting(1, "turdus-merula", now))
			convey.So(err, convey.ShouldBeNil)
			_, err = rt.svc.ProcessDiscovery(ctx, sighting(2, "turdus-merula", now))
			convey.So(err, convey.ShouldBeNil)
			_, err = rt.svc.ProcessDiscovery(ctx, sighting(2, "erithacus-rubecula", now))
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the leaderboard mirror follows the store", func() {
				top, err := rt.mirror.TopN(ctx, model.MetricUniqueSpecies, 10)
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(top), convey.ShouldEqual, 2)
				convey.So(top[0].UserID, convey.ShouldEqual, 2)
				convey.So(top[0].Value, convey.ShouldEqual, 2)
				convey.So(top[1].UserID, convey.ShouldEqual, 1)
			})

			convey.Convey("Then unlock notifications are published", func() {
				rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				msg, err := ps.ReceiveMessage(rctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(msg.Channel, convey.ShouldEqual, cfg.NotifyChannel)
				convey.So(msg.Payload, convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When redis is unreachable", func() {
			mr.Close()
			_, err := build(ctx, cfg)

			convey.Convey("Then build fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestEvery(t *testing.T) {
	convey.Convey("Given a ticking job", t, func() {
		var calls atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			every(ctx, 5*time.Millisecond, func() { calls.Add(1) })
			close(done)
		}()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(30 * time.Millisecond)
			cancel()

			convey.Convey("Then the loop returns after running the job", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("every did not return")
				}
				convey.So(calls.Load(), convey.ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then it runs without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
