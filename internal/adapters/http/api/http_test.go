package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/cosnor/winged/internal/adapters/http/api"
	"github.com/cosnor/winged/internal/adapters/repository"
	service "github.com/cosnor/winged/internal/app"
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/leaderboard"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
	"github.com/cosnor/winged/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeDeps struct {
	enqueued      []model.DiscoveryEvent
	enqueueErr    error
	duplicate     bool
	processErr    error
	completedOnly *bool
	metric        string
	limit         int
	lbErr         error
}

func (f *fakeDeps) Enqueue(_ context.Context, ev model.DiscoveryEvent) (bool, error) {
	if f.enqueueErr != nil {
		return false, f.enqueueErr
	}
	f.enqueued = append(f.enqueued, ev)
	return f.duplicate, nil
}

func (f *fakeDeps) ProcessDiscovery(_ context.Context, ev model.DiscoveryEvent) (types.DiscoveryResult, error) {
	if f.processErr != nil {
		return types.DiscoveryResult{}, f.processErr
	}
	return types.DiscoveryResult{IsNewSpecies: true, NewLevel: 1, Progress: types.ProgressSnapshot{UserID: ev.UserID}}, nil
}

func (f *fakeDeps) GetProgress(_ context.Context, userID int64) (types.ProgressSnapshot, error) {
	return types.ProgressSnapshot{UserID: userID, CurrentLevel: 1}, nil
}

func (f *fakeDeps) GetUnlockedAchievements(_ context.Context, _ int64, completedOnly bool) ([]types.AchievementStatus, error) {
	f.completedOnly = &completedOnly
	return nil, nil
}

func (f *fakeDeps) GetAchievementProgress(context.Context, int64) ([]types.AchievementStatus, error) {
	return []types.AchievementStatus{{Name: "First Flight"}}, nil
}

func (f *fakeDeps) GetLeaderboard(_ context.Context, metric string, limit int) ([]types.Entry, error) {
	f.metric, f.limit = metric, limit
	if f.lbErr != nil {
		return nil, f.lbErr
	}
	return []types.Entry{{Rank: 1, UserID: 1, Value: 10}}, nil
}

func (f *fakeDeps) GetRank(_ context.Context, userID int64, _ string) (types.Entry, error) {
	return types.Entry{Rank: 3, UserID: userID, Value: 5}, nil
}

func (f *fakeDeps) GetStats(context.Context) map[string]any {
	return map[string]any{"started": true}
}

const validBody = `{"event_id":"e1","user_id":7,"species_id":"turdus-merula","confidence":0.9,
"timestamp":"2024-05-01T09:00:00Z","rarity":"common","location":{"lat":51.5,"lon":-0.12}}`

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(rec.Body.Bytes(), v), ShouldBeNil)
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the API over fake dependencies", t, func() {
		deps := &fakeDeps{}
		h := api.NewServer(deps).Handler()

		Convey("a valid event is accepted with 202", func() {
			rec := do(h, http.MethodPost, "/events", validBody)
			So(rec.Code, ShouldEqual, http.StatusAccepted)
			So(deps.enqueued, ShouldHaveLength, 1)
			ev := deps.enqueued[0]
			So(ev.EventID, ShouldEqual, "e1")
			So(ev.UserID, ShouldEqual, 7)
			So(ev.Rarity, ShouldEqual, model.RarityCommon)
			So(ev.Location, ShouldNotBeNil)
			So(ev.Location.Lat, ShouldEqual, 51.5)
			So(ev.Timestamp.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("a duplicate is acknowledged with 200", func() {
			deps.duplicate = true
			rec := do(h, http.MethodPost, "/events", validBody)
			So(rec.Code, ShouldEqual, http.StatusOK)
			var ack map[string]any
			decode(rec, &ack)
			So(ack["duplicate"], ShouldBeTrue)
		})

		Convey("malformed bodies are rejected with 400", func() {
			So(do(h, http.MethodPost, "/events", "{").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/events", strings.Replace(validBody, "2024-05-01T09:00:00Z", "yesterday", 1)).Code,
				ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/events", strings.Replace(validBody, `"common"`, `"mythic"`, 1)).Code,
				ShouldEqual, http.StatusBadRequest)
			So(deps.enqueued, ShouldBeEmpty)
		})

		Convey("domain errors map to status codes", func() {
			cases := []struct {
				err  error
				code int
			}{
				{fmt.Errorf("%w: bad", discovery.ErrValidation), http.StatusBadRequest},
				{service.ErrBackpressure, http.StatusTooManyRequests},
				{service.ErrNotStarted, http.StatusServiceUnavailable},
				{errors.New("disk on fire"), http.StatusInternalServerError},
			}
			for _, c := range cases {
				deps.enqueueErr = c.err
				rec := do(h, http.MethodPost, "/events", validBody)
				So(rec.Code, ShouldEqual, c.code)
			}

			deps.enqueueErr = errors.New("secret detail")
			rec := do(h, http.MethodPost, "/events", validBody)
			So(rec.Body.String(), ShouldNotContainSubstring, "secret detail")
		})

		Convey("POST /discoveries returns the result", func() {
			rec := do(h, http.MethodPost, "/discoveries", validBody)
			So(rec.Code, ShouldEqual, http.StatusOK)
			var res types.DiscoveryResult
			decode(rec, &res)
			So(res.IsNewSpecies, ShouldBeTrue)
			So(res.Progress.UserID, ShouldEqual, 7)
		})

		Convey("GET on /events is not routed", func() {
			So(do(h, http.MethodGet, "/events", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestReadHandlers(t *testing.T) {
	Convey("Given the API over fake dependencies", t, func() {
		deps := &fakeDeps{}
		h := api.NewServer(deps).Handler()

		Convey("progress is served per user", func() {
			rec := do(h, http.MethodGet, "/progress/12", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var p types.ProgressSnapshot
			decode(rec, &p)
			So(p.UserID, ShouldEqual, 12)

			So(do(h, http.MethodGet, "/progress/abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/progress/0", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("completed_only defaults to true and parses booleans", func() {
			rec := do(h, http.MethodGet, "/achievements/1", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "[]")
			So(*deps.completedOnly, ShouldBeTrue)

			do(h, http.MethodGet, "/achievements/1?completed_only=false", "")
			So(*deps.completedOnly, ShouldBeFalse)

			So(do(h, http.MethodGet, "/achievements/1?completed_only=maybe", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("achievement progress is routed separately", func() {
			rec := do(h, http.MethodGet, "/achievements/1/progress", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "First Flight")
		})

		Convey("leaderboard passes metric and limit through", func() {
			rec := do(h, http.MethodGet, "/leaderboard?metric=rare_species_count&limit=5", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(deps.metric, ShouldEqual, "rare_species_count")
			So(deps.limit, ShouldEqual, 5)

			do(h, http.MethodGet, "/leaderboard", "")
			So(deps.limit, ShouldEqual, 10)

			So(do(h, http.MethodGet, "/leaderboard?limit=ten", "").Code, ShouldEqual, http.StatusBadRequest)

			deps.lbErr = fmt.Errorf("%w: 500", leaderboard.ErrInvalidLimit)
			rec = do(h, http.MethodGet, "/leaderboard?limit=500", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "limit_exceeded")

			deps.lbErr = fmt.Errorf("%w: wingspan", model.ErrInvalidMetric)
			So(do(h, http.MethodGet, "/leaderboard?metric=wingspan", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("rank is served per user", func() {
			rec := do(h, http.MethodGet, "/rank/4", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var e types.Entry
			decode(rec, &e)
			So(e.Rank, ShouldEqual, 3)
			So(e.UserID, ShouldEqual, 4)
		})

		Convey("stats, health and metrics respond", func() {
			So(do(h, http.MethodGet, "/stats", "").Body.String(), ShouldContainSubstring, "started")
			So(do(h, http.MethodGet, "/healthz", "").Body.String(), ShouldContainSubstring, "ok")
			So(do(h, http.MethodGet, "/metrics", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestAPI_EndToEnd(t *testing.T) {
	Convey("Given the API over a real service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		svc, err := service.New(store, service.WithMaxLeaderboardLimit(50))
		So(err, ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		h := api.NewServer(svc).Handler()

		post := func(userID int64, species, rarity string) *httptest.ResponseRecorder {
			body, _ := json.Marshal(map[string]any{
				"user_id": userID, "species_id": species, "confidence": 0.95,
				"timestamp": "2024-05-01T09:00:00Z", "rarity": rarity,
			})
			req := httptest.NewRequest(http.MethodPost, "/discoveries", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		So(post(1, "a", "common").Code, ShouldEqual, http.StatusOK)
		So(post(1, "b", "rare").Code, ShouldEqual, http.StatusOK)
		So(post(2, "a", "common").Code, ShouldEqual, http.StatusOK)

		Convey("the leaderboard and rank agree", func() {
			var entries []types.Entry
			decode(do(h, http.MethodGet, "/leaderboard?limit=10", ""), &entries)
			So(entries, ShouldHaveLength, 2)
			So(entries[0].UserID, ShouldEqual, 1)

			var e types.Entry
			decode(do(h, http.MethodGet, "/rank/2", ""), &e)
			So(e.Rank, ShouldEqual, 2)
			So(e.Value, ShouldEqual, entries[1].Value)
		})

		Convey("unlocked achievements come back", func() {
			var list []types.AchievementStatus
			decode(do(h, http.MethodGet, "/achievements/1", ""), &list)
			names := make([]string, 0, len(list))
			for _, st := range list {
				names = append(names, st.Name)
			}
			So(names, ShouldContain, "First Flight")
			So(names, ShouldContain, "Rare Find")
		})

		Convey("a limit above the configured maximum is rejected", func() {
			So(do(h, http.MethodGet, "/leaderboard?limit=51", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("an out-of-range confidence is a 400", func() {
			body := strings.Replace(validBody, "0.9", "1.9", 1)
			So(do(h, http.MethodPost, "/discoveries", body).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
