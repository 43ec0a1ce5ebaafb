package testevents

import "time"

// Config holds configuration for the load test.
type Config struct {
	BaseURL    string        // Base URL of the service
	Users      int           // Number of distinct birders
	NumEvents  int           // Number of discovery events to generate
	TopN       int           // Number of leaderboard entries to fetch
	Workers    int           // Number of concurrent workers
	Metric     string        // Leaderboard metric to verify
	Seed       uint64        // Seed for the event generator
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Max wait for the ingestion queue to drain
	OutputFile string        // Output file for events
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Event is the wire body of POST /events.
type Event struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	SpeciesID  string    `json:"species_id"`
	Confidence float64   `json:"confidence"`
	Timestamp  string    `json:"timestamp"`
	Location   *Location `json:"location,omitempty"`
	Rarity     string    `json:"rarity"`
}

// Location is an optional sighting position.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Entry is a leaderboard or rank entry.
type Entry struct {
	Rank   int   `json:"rank"`
	UserID int64 `json:"user_id"`
	Value  int64 `json:"value"`
}

// AckResponse is the response of POST /events.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics.
type Stats struct {
	EventsGenerated    int
	EventsSubmitted    int
	EventsSuccessful   int
	EventsDuplicate    int
	EventsRejected     int
	EventsFailed       int
	RankingsRetrieved  int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
