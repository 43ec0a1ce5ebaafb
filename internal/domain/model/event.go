// Package model contains the domain entities shared between the engine's layers.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Field validation errors. Callers match them with errors.Is.
var (
	ErrInvalidUserID     = errors.New("user_id must be positive")
	ErrInvalidSpeciesID  = errors.New("species_id must not be empty")
	ErrInvalidConfidence = errors.New("confidence must be within [0, 1]")
	ErrInvalidLocation   = errors.New("location out of range")
	ErrInvalidRarity     = errors.New("unknown rarity tier")
	ErrInvalidTimestamp  = errors.New("timestamp must be set")
)

// RarityTier is supplied by the species catalog upstream.
type RarityTier string

// Rarity tiers.
const (
	RarityCommon    RarityTier = "common"
	RarityUncommon  RarityTier = "uncommon"
	RarityRare      RarityTier = "rare"
	RarityVeryRare  RarityTier = "very_rare"
	RarityLegendary RarityTier = "legendary"
)

// RarityTiers lists every tier from most to least common.
var RarityTiers = []RarityTier{RarityCommon, RarityUncommon, RarityRare, RarityVeryRare, RarityLegendary}

// Valid reports whether r is a known tier.
func (r RarityTier) Valid() bool {
	for _, t := range RarityTiers {
		if r == t {
			return true
		}
	}
	return false
}

// ParseRarityTier normalizes s into a RarityTier.
func ParseRarityTier(s string) (RarityTier, error) {
	r := RarityTier(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRarity, s)
	}
	return r, nil
}

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidLocation, l.Lat, l.Lon)
	}
	return nil
}

// DiscoveryEvent is one user identifying one bird at one point in time.
// It is immutable once built.
type DiscoveryEvent struct {
	EventID    string     // optional idempotency key assigned by the client
	UserID     int64      // owner of the discovery
	SpeciesID  string     // species identifier from the upstream catalog
	Confidence float64    // identification confidence in [0, 1]
	Timestamp  time.Time  // when the bird was identified
	Location   *Location  // optional position of the sighting
	Rarity     RarityTier // rarity of the species
}

// Validate reports the first invalid field, if any.
func (e DiscoveryEvent) Validate() error { //nolint:gocritic // value receiver keeps the event immutable
	switch {
	case e.UserID <= 0:
		return ErrInvalidUserID
	case strings.TrimSpace(e.SpeciesID) == "":
		return ErrInvalidSpeciesID
	case math.IsNaN(e.Confidence) || e.Confidence < 0 || e.Confidence > 1:
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, e.Confidence)
	case e.Timestamp.IsZero():
		return ErrInvalidTimestamp
	case !e.Rarity.Valid():
		return fmt.Errorf("%w: %q", ErrInvalidRarity, e.Rarity)
	}
	if e.Location != nil {
		return e.Location.Validate()
	}
	return nil
}
