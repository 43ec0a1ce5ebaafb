package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/cosnor/winged/internal/adapters/mq/queue"
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/pkg/logger"
)

var errTransient = errors.New("transient")

type recorder struct {
	mu       sync.Mutex
	seen     map[int64][]int64
	attempts map[string]int
	failFor  map[string]int
	err      error
}

func newRecorder() *recorder {
	return &recorder{seen: map[int64][]int64{}, attempts: map[string]int{}, failFor: map[string]int{}}
}

func (r *recorder) Process(_ context.Context, ev Event) error { //nolint:gocritic // hugeParam
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[ev.EventID]++
	if r.err != nil {
		return r.err
	}
	if r.failFor[ev.EventID] > 0 {
		r.failFor[ev.EventID]--
		return errTransient
	}
	id, _ := strconv.ParseInt(ev.EventID, 10, 64)
	r.seen[ev.UserID] = append(r.seen[ev.UserID], id)
	return nil
}

func (r *recorder) attemptsFor(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[id]
}

func ev(userID, eventID int64) Event {
	return model.DiscoveryEvent{
		EventID: strconv.FormatInt(eventID, 10), UserID: userID, SpeciesID: "sp", Confidence: 0.9,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Rarity: model.RarityCommon,
	}
}

func runOne(w *Worker, in chan Event, events ...Event) {
	for _, e := range events {
		in <- e
	}
	close(in)
	w.Run(context.Background())
}

func TestWorker(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	Convey("Given a worker with fast backoff", t, func() {
		rec := newRecorder()
		in := make(chan Event, 10)
		var failed []string
		hook := func(_ context.Context, e Event, _ error) { failed = append(failed, e.EventID) }
		w := New(in, rec, WithRetries(2), WithBackoff(time.Millisecond, 2*time.Millisecond), WithFailureHook(hook))

		Convey("transient failures are retried until success", func() {
			rec.failFor["1"] = 2
			runOne(w, in, ev(1, 1))
			So(rec.attemptsFor("1"), ShouldEqual, 3)
			So(rec.seen[1], ShouldResemble, []int64{1})
			So(failed, ShouldBeEmpty)
		})

		Convey("retries are bounded", func() {
			rec.failFor["1"] = 10
			runOne(w, in, ev(1, 1))
			So(rec.attemptsFor("1"), ShouldEqual, 3)
			So(failed, ShouldResemble, []string{"1"})
		})

		Convey("validation errors are not retried", func() {
			rec.err = fmt.Errorf("%w: bad confidence", discovery.ErrValidation)
			runOne(w, in, ev(1, 1))
			So(rec.attemptsFor("1"), ShouldEqual, 1)
			So(failed, ShouldResemble, []string{"1"})
		})

		Convey("Run returns when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			w.Run(ctx)
			_, open := <-w.Done()
			So(open, ShouldBeFalse)
		})
	})

	Convey("ProcessorFunc adapts a function", t, func() {
		called := false
		p := ProcessorFunc(func(context.Context, Event) error { called = true; return nil })
		So(p.Process(context.Background(), ev(1, 1)), ShouldBeNil)
		So(called, ShouldBeTrue)
	})
}

func TestPool(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	Convey("Given a pool over four shards", t, func() {
		ctx := context.Background()
		q := queue.NewSharded(4, 400)
		rec := newRecorder()
		p := NewPool(q, rec, WithBackoff(time.Millisecond, time.Millisecond))
		So(p.Size(), ShouldEqual, 4)

		Convey("each user's events are processed in order and drained on shutdown", func() {
			p.Start(ctx)
			p.Start(ctx)
			next := int64(0)
			for round := 0; round < 20; round++ {
				for user := int64(1); user <= 6; user++ {
					next++
					So(q.Enqueue(ctx, ev(user, next)), ShouldBeNil)
				}
			}

			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(p.Shutdown(sctx), ShouldBeNil)

			for user := int64(1); user <= 6; user++ {
				got := rec.seen[user]
				So(len(got), ShouldEqual, 20)
				for i := 1; i < len(got); i++ {
					So(got[i], ShouldBeGreaterThan, got[i-1])
				}
			}
			So(errors.Is(q.Enqueue(ctx, ev(1, 999)), queue.ErrClosed), ShouldBeTrue)
		})

		Convey("shutdown without start returns at once", func() {
			So(p.Shutdown(ctx), ShouldBeNil)
		})
	})

	Convey("Given a pool whose processor blocks", t, func() {
		ctx := context.Background()
		q := queue.NewSharded(1, 10)
		entered := make(chan struct{})
		release := make(chan struct{})
		p := NewPool(q, ProcessorFunc(func(context.Context, Event) error {
			close(entered)
			<-release
			return nil
		}))
		p.Start(ctx)
		So(q.Enqueue(ctx, ev(1, 1)), ShouldBeNil)
		<-entered

		Convey("the event counts as in flight until it finishes", func() {
			So(p.InFlight(), ShouldEqual, 1)
			close(release)
			So(p.Shutdown(ctx), ShouldBeNil)
			So(p.InFlight(), ShouldEqual, 0)
		})
	})
}
