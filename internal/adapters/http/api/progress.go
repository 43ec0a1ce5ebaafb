package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cosnor/winged/internal/domain/types"
)

// ProgressDependencies reads a user's progress and achievements.
type ProgressDependencies interface {
	GetProgress(ctx context.Context, userID int64) (types.ProgressSnapshot, error)
	GetUnlockedAchievements(ctx context.Context, userID int64, completedOnly bool) ([]types.AchievementStatus, error)
	GetAchievementProgress(ctx context.Context, userID int64) ([]types.AchievementStatus, error)
}

// ProgressHandler serves per-user reads.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// HandleGetProgress handles GET /progress/{user_id}.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.deps.GetProgress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetAchievements handles GET /achievements/{user_id}?completed_only=.
// completed_only defaults to true.
func (h *ProgressHandler) HandleGetAchievements(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	completedOnly := true
	if raw := r.URL.Query().Get("completed_only"); raw != "" {
		completedOnly, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: completed_only must be a boolean", ErrBadRequest))
			return
		}
	}
	list, err := h.deps.GetUnlockedAchievements(r.Context(), id, completedOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// HandleGetAchievementProgress handles GET /achievements/{user_id}/progress.
func (h *ProgressHandler) HandleGetAchievementProgress(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.deps.GetAchievementProgress(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
