package testevents

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
)

// species is a weighted pool of sightings. Weights favour common birds.
var species = []struct {
	id     string
	rarity string
	weight int
}{
	{"passer-domesticus", "common", 30},
	{"turdus-merula", "common", 30},
	{"columba-livia", "common", 25},
	{"erithacus-rubecula", "common", 25},
	{"parus-major", "common", 20},
	{"sturnus-vulgaris", "common", 20},
	{"fringilla-coelebs", "uncommon", 10},
	{"sitta-europaea", "uncommon", 10},
	{"alcedo-atthis", "uncommon", 8},
	{"upupa-epops", "rare", 4},
	{"bubo-bubo", "rare", 3},
	{"aquila-chrysaetos", "very_rare", 2},
	{"tichodroma-muraria", "very_rare", 1},
	{"grus-japonensis", "legendary", 1},
}

const (
	minConfidence = 0.5
	historyDays   = 30
)

// generateEvents builds cfg.NumEvents events spread over cfg.Users users and
// the last historyDays days. Output is deterministic for a given seed apart
// from the event ids.
func generateEvents(cfg *Config, now time.Time) []Event {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	total := 0
	for _, s := range species {
		total += s.weight
	}
	users := max(cfg.Users, 1)

	events := make([]Event, cfg.NumEvents)
	for i := range events {
		pick := rng.IntN(total)
		sp := species[0]
		for _, s := range species {
			if pick < s.weight {
				sp = s
				break
			}
			pick -= s.weight
		}
		at := now.Add(-time.Duration(rng.Int64N(int64(historyDays * 24 * time.Hour))))
		ev := Event{
			EventID:    uuid.NewString(),
			UserID:     int64(rng.IntN(users)) + 1,
			SpeciesID:  sp.id,
			Confidence: minConfidence + rng.Float64()*(1-minConfidence),
			Timestamp:  at.UTC().Format(time.RFC3339),
			Rarity:     sp.rarity,
		}
		if rng.IntN(2) == 0 {
			ev.Location = &Location{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180}
		}
		events[i] = ev
	}
	return events
}

// userIDs returns the distinct user ids of events in ascending order.
func userIDs(events []Event) []int64 {
	seen := make(map[int64]struct{}, len(events))
	var out []int64
	for i := range events {
		if _, ok := seen[events[i].UserID]; ok {
			continue
		}
		seen[events[i].UserID] = struct{}{}
		out = append(out, events[i].UserID)
	}
	slices.Sort(out)
	return out
}
