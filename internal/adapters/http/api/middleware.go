package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cosnor/winged/pkg/metrics"
)

// MetricsMiddleware records request count, latency and, for failed
// requests, the error code the handler wrote.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		status := strconv.Itoa(sw.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status,
			float64(time.Since(start).Microseconds())/1000)
		if sw.status >= http.StatusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, sw.errorCode())
		}
	}
}

// statusWriter captures the status and the error code set by writeError.
type statusWriter struct {
	http.ResponseWriter
	status int
	code   string
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) setErrorCode(code string) { sw.code = code }

// errorCode falls back to the status class for errors written outside
// writeError, such as mux 404s.
func (sw *statusWriter) errorCode() string {
	switch {
	case sw.code != "":
		return sw.code
	case sw.status == http.StatusNotFound:
		return "not_found"
	case sw.status >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

// errorCodeSetter is implemented by writers that record error codes.
type errorCodeSetter interface {
	setErrorCode(code string)
}
