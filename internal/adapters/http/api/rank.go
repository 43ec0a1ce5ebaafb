package api

import (
	"context"
	"net/http"

	"github.com/cosnor/winged/internal/domain/types"
)

// RankDependencies defines the interface for rank lookups.
type RankDependencies interface {
	GetRank(ctx context.Context, userID int64, metric string) (types.Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{user_id}?metric=.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.deps.GetRank(r.Context(), id, r.URL.Query().Get("metric"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
