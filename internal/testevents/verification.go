package testevents

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInconsistent reports a ranking that breaks competition ordering.
var ErrInconsistent = errors.New("inconsistent ranking")

// verifyResults checks that per-user ranks and the leaderboard agree. Among
// the sampled users, equal values share a rank and a user at sorted position
// i has rank at least i+1; users outside the sample can only push ranks down.
// The leaderboard must be ordered by value desc, then user id asc.
func verifyResults(ranks, board []Entry) error {
	if len(ranks) == 0 {
		return fmt.Errorf("%w: no rankings to verify", ErrInconsistent)
	}

	sorted := append([]Entry(nil), ranks...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].UserID < sorted[j].UserID
	})
	byUser := make(map[int64]Entry, len(sorted))
	for i, e := range sorted {
		byUser[e.UserID] = e
		if e.Rank < i+1 && (i == 0 || e.Value != sorted[i-1].Value) {
			return fmt.Errorf("%w: user %d has rank %d at position %d", ErrInconsistent, e.UserID, e.Rank, i+1)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if e.Value == prev.Value && e.Rank != prev.Rank {
			return fmt.Errorf("%w: users %d and %d tie on %d with ranks %d and %d",
				ErrInconsistent, prev.UserID, e.UserID, e.Value, prev.Rank, e.Rank)
		}
		if e.Value < prev.Value && e.Rank <= prev.Rank {
			return fmt.Errorf("%w: user %d ranks %d above user %d at %d",
				ErrInconsistent, e.UserID, e.Rank, prev.UserID, prev.Rank)
		}
	}

	for i, e := range board {
		if i > 0 {
			prev := board[i-1]
			if e.Value > prev.Value || (e.Value == prev.Value && e.UserID < prev.UserID) {
				return fmt.Errorf("%w: leaderboard entry %d out of order", ErrInconsistent, i)
			}
		}
		// Users outside the generated set may hold earlier progress.
		r, ok := byUser[e.UserID]
		if !ok {
			continue
		}
		if r.Value != e.Value || r.Rank != e.Rank {
			return fmt.Errorf("%w: user %d leaderboard (%d, #%d) vs rank (%d, #%d)",
				ErrInconsistent, e.UserID, e.Value, e.Rank, r.Value, r.Rank)
		}
	}
	return nil
}
