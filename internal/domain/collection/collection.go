// Package collection counts completed species collections.
package collection

import (
	"sort"
	"strings"
)

// SetCounter holds named species sets and counts how many of them a user's
// collection fully contains.
type SetCounter struct {
	sets map[string]map[string]struct{}
}

// NewSetCounter builds a counter from name to species ids. Empty sets are
// dropped since they would count as complete for every user.
func NewSetCounter(sets map[string][]string) *SetCounter {
	c := &SetCounter{sets: make(map[string]map[string]struct{}, len(sets))}
	for name, species := range sets {
		members := make(map[string]struct{}, len(species))
		for _, s := range species {
			if s = strings.TrimSpace(s); s != "" {
				members[s] = struct{}{}
			}
		}
		if len(members) == 0 {
			continue
		}
		c.sets[name] = members
	}
	return c
}

// CompletedCount returns the number of sets fully covered by owned.
func (c *SetCounter) CompletedCount(owned []string) int64 {
	if c == nil || len(c.sets) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(owned))
	for _, s := range owned {
		have[s] = struct{}{}
	}
	var n int64
	for _, members := range c.sets {
		if covers(have, members) {
			n++
		}
	}
	return n
}

// Completed returns the names of the sets fully covered by owned, sorted.
func (c *SetCounter) Completed(owned []string) []string {
	if c == nil {
		return nil
	}
	have := make(map[string]struct{}, len(owned))
	for _, s := range owned {
		have[s] = struct{}{}
	}
	var names []string
	for name, members := range c.sets {
		if covers(have, members) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of configured sets.
func (c *SetCounter) Len() int {
	if c == nil {
		return 0
	}
	return len(c.sets)
}

func covers(have, members map[string]struct{}) bool {
	if len(have) < len(members) {
		return false
	}
	for s := range members {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}
