package model

import "time"

// CollectionEntry is a user's record of one species. Created on first
// discovery and updated on every later sighting, never recreated.
type CollectionEntry struct {
	UserID         int64
	SpeciesID      string
	FirstSeenAt    time.Time
	LastSeenAt     time.Time
	SightingCount  int
	BestConfidence float64
	LastLocation   *Location
}

// UserProgress is the aggregate progress record of one user.
type UserProgress struct {
	UserID                        int64
	TotalDiscoveries              int64
	UniqueSpeciesCount            int64
	TotalPoints                   int64
	CurrentLevel                  int
	CurrentStreakDays             int
	LongestStreakDays             int
	LastDiscoveryDate             *time.Time
	AchievementsUnlockedCount     int64
	RareSpeciesCount              int64
	CollectionsCompleted          int64
	TotalIdentifications          int64
	HighConfidenceIdentifications int64
	Version                       int64
	CreatedAt                     time.Time
	UpdatedAt                     time.Time
}

// NewUserProgress returns the zero-valued record created on a user's first
// discovery.
func NewUserProgress(userID int64) UserProgress {
	return UserProgress{UserID: userID, CurrentLevel: 1}
}

// AccuracyRate is the share of identifications at high confidence.
func (p *UserProgress) AccuracyRate() float64 {
	if p.TotalIdentifications == 0 {
		return 0
	}
	return float64(p.HighConfidenceIdentifications) / float64(p.TotalIdentifications)
}

// AveragePointsPerSpecies is total points divided by unique species.
func (p *UserProgress) AveragePointsPerSpecies() float64 {
	if p.UniqueSpeciesCount == 0 {
		return 0
	}
	return float64(p.TotalPoints) / float64(p.UniqueSpeciesCount)
}

// Clone returns a deep copy.
func (p *UserProgress) Clone() UserProgress {
	c := *p
	if p.LastDiscoveryDate != nil {
		d := *p.LastDiscoveryDate
		c.LastDiscoveryDate = &d
	}
	return c
}

// Clone returns a deep copy.
func (e *CollectionEntry) Clone() CollectionEntry {
	c := *e
	if e.LastLocation != nil {
		l := *e.LastLocation
		c.LastLocation = &l
	}
	return c
}

// CollectionSummary is the read-only view of a user's collection the
// achievement evaluator works with.
type CollectionSummary struct {
	SpeciesIDs []string
	Locations  []Location
}

// Summarize builds a CollectionSummary from collection entries.
func Summarize(entries []CollectionEntry) CollectionSummary {
	s := CollectionSummary{SpeciesIDs: make([]string, 0, len(entries))}
	for i := range entries {
		s.SpeciesIDs = append(s.SpeciesIDs, entries[i].SpeciesID)
		if entries[i].LastLocation != nil {
			s.Locations = append(s.Locations, *entries[i].LastLocation)
		}
	}
	return s
}
