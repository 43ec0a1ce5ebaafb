package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/cosnor/winged/internal/app"
)

func TestStatusWriter(t *testing.T) {
	Convey("Given a status writer", t, func() {
		rec := httptest.NewRecorder()
		sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

		Convey("writeError records the machine code and status", func() {
			writeError(sw, service.ErrBackpressure)
			So(sw.status, ShouldEqual, http.StatusTooManyRequests)
			So(sw.errorCode(), ShouldEqual, "backpressure")
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("plain statuses fall back to their class", func() {
			sw.WriteHeader(http.StatusNotFound)
			So(sw.errorCode(), ShouldEqual, "not_found")
		})

		Convey("handlers wrapped by the middleware still respond", func() {
			h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, fmt.Errorf("%w: boom", ErrBadRequest))
			}, "test")
			h(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldContainSubstring, "bad_request")
		})
	})
}
