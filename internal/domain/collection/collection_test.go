package collection_test

import (
	"testing"

	"github.com/cosnor/winged/internal/domain/collection"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSetCounter(t *testing.T) {
	Convey("Given two named species sets", t, func() {
		c := collection.NewSetCounter(map[string][]string{
			"garden":  {"erithacus-rubecula", "turdus-merula", "parus-major"},
			"raptors": {"buteo-buteo", "falco-tinnunculus"},
			"empty":   {" "},
		})
		So(c.Len(), ShouldEqual, 2)

		Convey("A partial collection completes nothing", func() {
			So(c.CompletedCount([]string{"erithacus-rubecula", "buteo-buteo"}), ShouldEqual, 0)
		})

		Convey("A full set counts once", func() {
			owned := []string{"erithacus-rubecula", "turdus-merula", "parus-major", "buteo-buteo"}
			So(c.CompletedCount(owned), ShouldEqual, 1)
			So(c.Completed(owned), ShouldResemble, []string{"garden"})
		})

		Convey("Both sets count when both are covered", func() {
			owned := []string{"erithacus-rubecula", "turdus-merula", "parus-major", "buteo-buteo", "falco-tinnunculus", "pica-pica"}
			So(c.CompletedCount(owned), ShouldEqual, 2)
		})
	})

	Convey("A nil counter completes nothing", t, func() {
		var c *collection.SetCounter
		So(c.CompletedCount([]string{"a"}), ShouldEqual, 0)
	})
}
