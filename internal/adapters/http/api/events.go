package api

import (
	"context"
	"net/http"

	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
)

// EventDependencies ingests discovery events.
type EventDependencies interface {
	// Enqueue queues ev for async processing. duplicate reports an event id
	// that was already accepted.
	Enqueue(ctx context.Context, ev model.DiscoveryEvent) (duplicate bool, err error)
	ProcessDiscovery(ctx context.Context, ev model.DiscoveryEvent) (types.DiscoveryResult, error)
}

// EventsHandler handles event ingestion.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /events: validate, dedupe and enqueue.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := decodeEvent(r)
	if err != nil {
		writeError(w, err)
		return
	}
	dup, err := h.deps.Enqueue(r.Context(), ev)
	if err != nil {
		writeError(w, err)
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandlePostDiscovery handles POST /discoveries and returns the result.
func (h *EventsHandler) HandlePostDiscovery(w http.ResponseWriter, r *http.Request) {
	ev, err := decodeEvent(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.deps.ProcessDiscovery(r.Context(), ev)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
