// Package rulesetdata tracks ruleset-specific side statistics over the
// surviving candidate matchings that internal/iterstate streams through it
// — in particular, under XTimesDup/SomeoneIsTrip/FixedTrip, which B member
// ended up as the duplicate (or third member of a triple) and how often,
// so a presenter can show "Pr[X is the duplicate] = .." without every
// caller re-deriving it from the raw candidate list.
package rulesetdata

import (
	"sort"

	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
	"github.com/atticus-sullivan/sim-ayto-go/internal/ruleset"
)

// Tracker accumulates per-candidate side statistics for one ruleset kind.
type Tracker interface {
	// Observe folds one surviving candidate into the running tallies.
	Observe(cand matching.M)
	// DupFrequency returns, for each B value ever seen occupying a
	// non-singleton slot, how many observed candidates had it there. Empty
	// for rulesets with no notion of a duplicate (Eq, NToN).
	DupFrequency() map[int]int
	// Total is the number of candidates observed so far.
	Total() int
}

// New returns the Tracker appropriate for r's Kind. Eq and NToN never
// produce a non-singleton slot, so they get the no-op tracker.
func New(r ruleset.Ruleset) Tracker {
	switch r.Kind {
	case ruleset.XTimesDup, ruleset.SomeoneIsTrip, ruleset.FixedTrip:
		return &dupTracker{freq: make(map[int]int)}
	default:
		return &noopTracker{}
	}
}

type noopTracker struct{ total int }

func (n *noopTracker) Observe(matching.M)        { n.total++ }
func (n *noopTracker) DupFrequency() map[int]int { return nil }
func (n *noopTracker) Total() int                { return n.total }

type dupTracker struct {
	total int
	freq  map[int]int
}

func (d *dupTracker) Observe(cand matching.M) {
	d.total++
	for _, slot := range cand {
		if slot.Count() <= 1 {
			continue
		}
		slot.Iter(func(v int) bool {
			d.freq[v]++
			return true
		})
	}
}

func (d *dupTracker) DupFrequency() map[int]int { return d.freq }
func (d *dupTracker) Total() int                { return d.total }

// ProbabilityTable renders DupFrequency as Pr[v is a duplicate member],
// sorted descending by probability then ascending by v, for stable
// presentation.
type ProbabilityEntry struct {
	Value int
	Prob  float64
}

func ProbabilityTable(t Tracker) []ProbabilityEntry {
	freq := t.DupFrequency()
	total := t.Total()
	out := make([]ProbabilityEntry, 0, len(freq))
	for v, n := range freq {
		p := 0.0
		if total > 0 {
			p = float64(n) / float64(total)
		}
		out = append(out, ProbabilityEntry{Value: v, Prob: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prob != out[j].Prob {
			return out[i].Prob > out[j].Prob
		}
		return out[i].Value < out[j].Value
	})
	return out
}
