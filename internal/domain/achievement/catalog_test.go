package achievement_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cosnor/winged/internal/domain/achievement"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeStore struct {
	mu     sync.Mutex
	byName map[string]model.AchievementDefinition
	fail   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byName: map[string]model.AchievementDefinition{}}
}

func (f *fakeStore) UpsertAchievements(_ context.Context, defs []model.AchievementDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	for _, d := range defs {
		f.byName[d.Name] = d
	}
	return nil
}

func (f *fakeStore) ListAchievements(context.Context) ([]model.AchievementDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AchievementDefinition, 0, len(f.byName))
	for _, d := range f.byName {
		out = append(out, d)
	}
	return out, nil
}

func TestCatalogBootstrap(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Convey("Given an empty catalog", t, func() {
		ctx := context.Background()
		store := newFakeStore()
		cat, err := achievement.NewCatalog(store)
		So(err, ShouldBeNil)

		Convey("Definitions are unavailable before bootstrap", func() {
			_, err := cat.Definitions()
			So(errors.Is(err, achievement.ErrNotBootstrapped), ShouldBeTrue)
		})

		Convey("When the defaults are bootstrapped twice", func() {
			defaults := achievement.DefaultDefinitions()
			So(cat.Bootstrap(ctx, defaults), ShouldBeNil)
			So(cat.Bootstrap(ctx, defaults), ShouldBeNil)

			Convey("Then no duplicates exist and ids derive from names", func() {
				defs, err := cat.Definitions()
				So(err, ShouldBeNil)
				So(len(defs), ShouldEqual, len(defaults))
				for _, d := range defs {
					So(d.ID, ShouldEqual, model.AchievementID(d.Name))
					got, ok := cat.Get(d.ID)
					So(ok, ShouldBeTrue)
					So(got.Name, ShouldEqual, d.Name)
				}
			})
		})

		Convey("Duplicate names within one bootstrap are rejected", func() {
			d := model.AchievementDefinition{Name: "Dup", Type: model.TypeStreak, Tier: model.TierBronze, RequirementValue: 1}
			err := cat.Bootstrap(ctx, []model.AchievementDefinition{d, d})
			So(errors.Is(err, achievement.ErrDuplicateName), ShouldBeTrue)
		})

		Convey("Invalid definitions are rejected", func() {
			d := model.AchievementDefinition{Name: "Zero", Type: model.TypeStreak, Tier: model.TierBronze}
			err := cat.Bootstrap(ctx, []model.AchievementDefinition{d})
			So(errors.Is(err, model.ErrInvalidRequirement), ShouldBeTrue)
		})

		Convey("Unknown types are accepted unless the catalog is strict", func() {
			d := model.AchievementDefinition{Name: "Social Butterfly", Type: "social", Tier: model.TierBronze, RequirementValue: 1}
			So(cat.Bootstrap(ctx, []model.AchievementDefinition{d}), ShouldBeNil)

			strict, err := achievement.NewCatalog(newFakeStore(), achievement.WithStrictTypes(true))
			So(err, ShouldBeNil)
			err = strict.Bootstrap(ctx, []model.AchievementDefinition{d})
			So(errors.Is(err, achievement.ErrUnknownType), ShouldBeTrue)
		})

		Convey("Store failures are returned", func() {
			store.fail = errors.New("boom")
			err := cat.Bootstrap(ctx, achievement.DefaultDefinitions())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "upsert achievements")
		})
	})

	Convey("A nil store is rejected", t, func() {
		_, err := achievement.NewCatalog(nil)
		So(errors.Is(err, achievement.ErrNilStore), ShouldBeTrue)
	})
}
