package api

import (
	"errors"
	"net/http"

	service "github.com/cosnor/winged/internal/app"
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/leaderboard"
	"github.com/cosnor/winged/internal/domain/model"
)

// ErrBadRequest marks malformed requests.
var ErrBadRequest = errors.New("bad request")

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps an error to a status code and a short machine code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidUser),
		errors.Is(err, leaderboard.ErrInvalidUser):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, discovery.ErrValidation):
		return http.StatusBadRequest, "invalid_event"
	case errors.Is(err, model.ErrInvalidMetric):
		return http.StatusBadRequest, "invalid_metric"
	case errors.Is(err, leaderboard.ErrInvalidLimit):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if status < http.StatusInternalServerError {
		msg = err.Error()
	}
	if cs, ok := w.(errorCodeSetter); ok {
		cs.setErrorCode(code)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
