// Package api exposes the progress engine over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/pkg/logger"
)

// Dependencies bundles everything the handlers need. *service.Service
// satisfies it.
type Dependencies interface {
	EventDependencies
	ProgressDependencies
	LeaderboardDependencies
	RankDependencies
	StatsProvider
}

// Server wires HTTP routes for the API.
type Server struct {
	health      *HealthHandler
	stats       *StatsHandler
	events      *EventsHandler
	progress    *ProgressHandler
	leaderboard *LeaderboardHandler
	rank        *RankHandler
	log         logger.Logger
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		health:      NewHealthHandler(),
		stats:       NewStatsHandler(deps),
		events:      NewEventsHandler(deps),
		progress:    NewProgressHandler(deps),
		leaderboard: NewLeaderboardHandler(deps),
		rank:        NewRankHandler(deps),
		log:         logger.Named("http"),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.health.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.events.HandlePostEvent, "events"))
	mux.HandleFunc("POST /discoveries", MetricsMiddleware(s.events.HandlePostDiscovery, "discoveries"))
	mux.HandleFunc("GET /progress/{user_id}", MetricsMiddleware(s.progress.HandleGetProgress, "progress"))
	mux.HandleFunc("GET /achievements/{user_id}", MetricsMiddleware(s.progress.HandleGetAchievements, "achievements"))
	mux.HandleFunc("GET /achievements/{user_id}/progress", MetricsMiddleware(s.progress.HandleGetAchievementProgress, "achievement_progress"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboard.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{user_id}", MetricsMiddleware(s.rank.HandleGetRank, "rank"))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// eventRequest is the body of POST /events and POST /discoveries.
type eventRequest struct {
	EventID    string           `json:"event_id"`
	UserID     int64            `json:"user_id"`
	SpeciesID  string           `json:"species_id"`
	Confidence float64          `json:"confidence"`
	Timestamp  string           `json:"timestamp"`
	Location   *locationRequest `json:"location,omitempty"`
	Rarity     string           `json:"rarity"`
}

// toEvent parses the wire fields. Range checks are left to the domain.
func (e *eventRequest) toEvent() (model.DiscoveryEvent, error) {
	if strings.TrimSpace(e.Timestamp) == "" {
		return model.DiscoveryEvent{}, fmt.Errorf("%w: missing timestamp", ErrBadRequest)
	}
	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return model.DiscoveryEvent{}, fmt.Errorf("%w: timestamp must be RFC3339", ErrBadRequest)
	}
	rarity, err := model.ParseRarityTier(e.Rarity)
	if err != nil {
		return model.DiscoveryEvent{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	ev := model.DiscoveryEvent{
		EventID:    strings.TrimSpace(e.EventID),
		UserID:     e.UserID,
		SpeciesID:  strings.TrimSpace(e.SpeciesID),
		Confidence: e.Confidence,
		Timestamp:  ts.UTC(),
		Rarity:     rarity,
	}
	if e.Location != nil {
		ev.Location = &model.Location{Lat: e.Location.Lat, Lon: e.Location.Lon}
	}
	return ev, nil
}

func decodeEvent(r *http.Request) (model.DiscoveryEvent, error) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.DiscoveryEvent{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return req.toEvent()
}

func userIDParam(r *http.Request) (int64, error) {
	raw := r.PathValue("user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", ErrBadRequest, raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
