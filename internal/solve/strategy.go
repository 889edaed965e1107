package solve

import (
	"math"
	"math/rand/v2"

	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
)

// MoveKind distinguishes a single-pair Box query from a full-matching
// Night submission — the two question types a season's cast can put to
// the house each round.
type MoveKind int

const (
	BoxMove MoveKind = iota
	NightMove
)

// Strategy picks the next question to ask given the current solver state.
// ChooseBox sees the remaining-possibility matrix (spec.md §3's Rem);
// ChooseNight sees the materialized possibilities slice directly, since
// the entropy-maximizing guess depends on the full joint distribution of
// lights counts a guess would produce against every surviving candidate,
// not just the per-pair marginals Rem carries.
//
// Implementations are pure functions of their inputs and rng: no strategy
// holds state across rounds, which is what makes per-seed determinism
// (same seed, same strategy => same trajectory) a property test can
// assert directly.
type Strategy interface {
	Name() string
	Kind() MoveKind
	ChooseBox(rem matching.Rem, rng *rand.Rand) (slotA, valB int)
	ChooseNight(possibilities []matching.M, rng *rand.Rand) matching.M
}

// OptimalMb targets the (slotA, valB) pair whose surviving-candidate count
// is closest to half of the total remaining possibilities — the classic
// binary-search framing of an optimal box question: whichever answer comes
// back, roughly half the remaining possibility space is eliminated.
type OptimalMb struct{}

func (OptimalMb) Name() string   { return "optimal_mb" }
func (OptimalMb) Kind() MoveKind { return BoxMove }

func (OptimalMb) ChooseBox(rem matching.Rem, rng *rand.Rand) (int, int) {
	target := float64(rem.Total) / 2
	bestA, bestB := -1, -1
	bestDist := math.Inf(1)
	for a, row := range rem.Counts {
		for b, count := range row {
			if count <= 0 {
				continue
			}
			d := math.Abs(float64(count) - target)
			if d < bestDist {
				bestDist = d
				bestA, bestB = a, b
			}
		}
	}
	return bestA, bestB
}

func (OptimalMb) ChooseNight(possibilities []matching.M, rng *rand.Rand) matching.M {
	return firstPossibility(possibilities)
}

// EntropyLeftMn submits, each round, whichever surviving candidate
// maximizes the Shannon entropy of the lights-count distribution it would
// produce if submitted as a guess against every surviving candidate
// (itself included) — the guess expected to split the remaining possibility space most
// evenly across its possible light-count outcomes. Ties go to whichever
// candidate was encountered first in possibilities (spec.md §8 scenario 6).
type EntropyLeftMn struct{}

func (EntropyLeftMn) Name() string   { return "entropy_left_mn" }
func (EntropyLeftMn) Kind() MoveKind { return NightMove }

func (EntropyLeftMn) ChooseBox(rem matching.Rem, rng *rand.Rand) (int, int) {
	return firstAvailableInRem(rem)
}

func (EntropyLeftMn) ChooseNight(possibilities []matching.M, rng *rand.Rand) matching.M {
	bestIdx := -1
	bestEntropy := -1.0
	for i, guess := range possibilities {
		hist := make(map[int]int, len(possibilities))
		for _, p := range possibilities {
			hist[guess.CalculateLights(p)]++
		}
		h := shannonEntropy(hist, len(possibilities))
		if h > bestEntropy {
			bestEntropy = h
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return nil
	}
	return possibilities[bestIdx]
}

// shannonEntropy computes -sum(p*log2(p)) over a discrete histogram of
// outcome counts summing to total.
func shannonEntropy(hist map[int]int, total int) float64 {
	if total == 0 {
		return 0
	}
	var h float64
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// Deterministic always queries the first (ascending a, then ascending b)
// pair with a non-zero surviving count, and guesses the first surviving
// possibility for a Night move — a fixed baseline strategy useful for
// regression tests that want no data-dependent branching.
type Deterministic struct{}

func (Deterministic) Name() string   { return "deterministic" }
func (Deterministic) Kind() MoveKind { return BoxMove }

func (Deterministic) ChooseBox(rem matching.Rem, rng *rand.Rand) (int, int) {
	return firstAvailableInRem(rem)
}

func (Deterministic) ChooseNight(possibilities []matching.M, rng *rand.Rand) matching.M {
	return firstPossibility(possibilities)
}

func firstAvailableInRem(rem matching.Rem) (int, int) {
	for a, row := range rem.Counts {
		for b, count := range row {
			if count > 0 {
				return a, b
			}
		}
	}
	return 0, 0
}

func firstPossibility(possibilities []matching.M) matching.M {
	if len(possibilities) == 0 {
		return nil
	}
	return possibilities[0]
}

// ByName resolves a strategy name (as passed on the CLI) to a Strategy.
func ByName(name string) (Strategy, bool) {
	switch name {
	case "optimal_mb":
		return OptimalMb{}, true
	case "entropy_left_mn":
		return EntropyLeftMn{}, true
	case "deterministic":
		return Deterministic{}, true
	}
	return nil, false
}
