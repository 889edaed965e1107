// Package solve implements the Monte-Carlo solver: many independent
// simulated seasons, each played against a hidden solution by a pluggable
// Strategy, run in parallel and written out as one JSON line per
// simulation.
//
// Grounded on sdk/solver/trainer.go's goroutine fan-out (NewTrainer /
// singleIteration's per-worker seeded RNG, WaitGroup join) generalized from
// a raw sync.WaitGroup to golang.org/x/sync/errgroup + semaphore.Weighted,
// and on sdk/solver/checkpoint.go's atomic-tmp-then-rename persistence,
// adapted from a single end-of-run snapshot to a streamed JSONL writer that
// still lands the final file atomically.
package solve

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/atticus-sullivan/sim-ayto-go/internal/ayerr"
	"github.com/atticus-sullivan/sim-ayto-go/internal/bitset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/constraint"
	"github.com/atticus-sullivan/sim-ayto-go/internal/iterstate"
	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
	"github.com/atticus-sullivan/sim-ayto-go/internal/present"
	"github.com/atticus-sullivan/sim-ayto-go/internal/randutil"
	"github.com/atticus-sullivan/sim-ayto-go/internal/ruleset"
)

// Config parametrizes a solver run.
type Config struct {
	Ruleset    ruleset.Ruleset
	SizeA      int
	Strategy   Strategy
	N          int    // number of independent simulations
	Seed       int64  // master seed; per-simulation seeds derive from it
	Out        string // output JSONL path
	MaxRounds  int    // safety cap on rounds per simulation (0 => SizeA*4)
	Parallel   int    // worker count, enforced by a semaphore (0 => 8)
	OnProgress func(done, total int)

	// Clock sources wall-clock time for Deadline enforcement and for
	// timing each simulation's duration_ms. Defaults to quartz.NewReal();
	// tests inject quartz.NewMock(t) to make a deadline trip
	// deterministically without an actual sleep.
	Clock quartz.Clock
	// Deadline, if positive, stops launching new simulations once this much
	// wall-clock time has elapsed since Run started — a sweep of N=1e9 run
	// overnight can still be bounded without knowing in advance how many
	// simulations fit in the time budget. Simulations already in flight are
	// still allowed to finish.
	Deadline time.Duration
}

// SimulationResult is one JSONL record: the outcome of one simulated
// season, following spec.md §6's documented solver output schema.
type SimulationResult struct {
	SimID           int                 `json:"sim_id"`
	Seed            int64               `json:"seed"`
	Stats           []present.EvalEvent `json:"stats"`
	IterationsCount int                 `json:"iterations_count"`
	DurationMs      int64               `json:"duration_ms"`
}

// Run executes cfg.N simulations in parallel and writes them, one JSON
// object per line, to cfg.Out. The file is written to a temp path in the
// same directory and renamed into place once every simulation has
// completed, so a reader never observes a partially written output file.
func Run(ctx context.Context, cfg Config) error {
	if cfg.N <= 0 {
		return ayerr.Specf("solve", "N must be positive, got %d", cfg.N)
	}
	maxRounds := cfg.MaxRounds
	if maxRounds == 0 {
		maxRounds = cfg.SizeA * 4
	}
	parallel := cfg.Parallel
	if parallel <= 0 {
		parallel = 8
	}

	dir := filepath.Dir(cfg.Out)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ayerr.IOf(cfg.Out, "create output dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(cfg.Out)+".tmp-*")
	if err != nil {
		return ayerr.IOf(cfg.Out, "create temp output: %w", err)
	}

	results := make(chan SimulationResult, parallel*2)
	writeErrCh := make(chan error, 1)
	go func() {
		enc := json.NewEncoder(tmp)
		for r := range results {
			if err := enc.Encode(r); err != nil {
				writeErrCh <- ayerr.IOf(cfg.Out, "encode simulation result: %w", err)
				return
			}
		}
		writeErrCh <- nil
	}()

	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	var deadline time.Time
	if cfg.Deadline > 0 {
		deadline = clock.Now().Add(cfg.Deadline)
	}

	sizeB := cfg.Ruleset.SizeB(cfg.SizeA)

	sem := semaphore.NewWeighted(int64(parallel))
	g, gctx := errgroup.WithContext(ctx)
	var done atomic.Int64
	for i := 0; i < cfg.N; i++ {
		idx := i
		if !deadline.IsZero() && !clock.Now().Before(deadline) {
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			seed := deriveSeed(cfg.Seed, idx)
			res, err := playOne(cfg.Ruleset, cfg.SizeA, sizeB, cfg.Strategy, idx, seed, maxRounds, clock)
			if err != nil {
				return err
			}
			select {
			case results <- res:
			case <-gctx.Done():
				return gctx.Err()
			}
			n := done.Add(1)
			if cfg.OnProgress != nil {
				cfg.OnProgress(int(n), cfg.N)
			}
			return nil
		})
	}

	runErr := g.Wait()
	close(results)
	writeErr := <-writeErrCh

	if err := tmp.Close(); err != nil && writeErr == nil {
		writeErr = ayerr.IOf(cfg.Out, "close temp output: %w", err)
	}
	if runErr != nil {
		os.Remove(tmp.Name())
		return runErr
	}
	if writeErr != nil {
		os.Remove(tmp.Name())
		return writeErr
	}
	if err := os.Rename(tmp.Name(), cfg.Out); err != nil {
		os.Remove(tmp.Name())
		return ayerr.IOf(cfg.Out, "persist output: %w", err)
	}
	return nil
}

// deriveSeed derives a per-simulation seed from the master seed and index,
// reusing the teacher's golden-ratio mixing so simulation i's trajectory
// is reproducible independent of how many other simulations ran alongside
// it.
func deriveSeed(master int64, idx int) int64 {
	return master + int64(uint64(idx)*0x9e3779b97f4a7c15)
}

// playOne runs a single simulated season. A hidden solution is sampled
// uniformly at random (reservoir sampling over the ruleset's full
// enumeration), then one enumeration pass materializes every candidate as
// the initial possibilities/rem pair (spec.md §4.8). Every subsequent
// round mutates possibilities in place via swap-remove and folds the
// round's constraint into rem via apply_to_rem — no re-enumeration.
func playOne(r ruleset.Ruleset, sizeA, sizeB int, strat Strategy, simID int, seed int64, maxRounds int, clock quartz.Clock) (SimulationResult, error) {
	start := clock.Now()
	rng := randutil.New(seed)

	hidden, err := sampleHidden(r, sizeA, rng)
	if err != nil {
		return SimulationResult{}, err
	}

	init, err := iterstate.Run(iterstate.Config{Ruleset: r, SizeA: sizeA, SizeB: sizeB, Materialize: true})
	if err != nil {
		return SimulationResult{}, err
	}
	possibilities := init.Possibilities
	rem := init.Rem

	var stats []present.EvalEvent
	stats = append(stats, present.EvalEvent{
		Type:          present.EventInitial,
		BitsLeftAfter: log2OrInf(rem.Total),
	})

	rounds := 0
roundLoop:
	for ; rounds < maxRounds && len(possibilities) > 1; rounds++ {
		var c *constraint.Constraint
		var evType present.EventType
		var lightsTotal *int

		switch strat.Kind() {
		case BoxMove:
			slotA, valB := strat.ChooseBox(rem, rng)
			if slotA < 0 {
				break roundLoop
			}
			sold := hidden[slotA].Contains(valB)
			m := matching.New(sizeA)
			m[slotA] = m[slotA].Insert(valB)
			lightsN := 0
			if sold {
				lightsN = 1
			}
			c = &constraint.Constraint{Kind: constraint.Box, Check: constraint.Lights, LightsN: lightsN, Map: m}
			if sold {
				c.Exclude = &constraint.Exclude{Slot: slotA, Disallowed: allBExcept(sizeB, valB)}
			}
			evType = present.EventMB
		case NightMove:
			guess := strat.ChooseNight(possibilities, rng)
			lights := hidden.CalculateLights(guess)
			c = &constraint.Constraint{Kind: constraint.Night, Check: constraint.Lights, LightsN: lights, Map: guess}
			evType = present.EventMN
			l := lights
			lightsTotal = &l
		default:
			return SimulationResult{}, ayerr.Invariantf("solve", "unknown strategy move kind %v", strat.Kind())
		}

		c.Init(sizeA, sizeB)
		write := 0
		for _, cand := range possibilities {
			if c.Process(cand) {
				possibilities[write] = cand
				write++
			}
		}
		possibilities = possibilities[:write]

		nextRem, err := c.ApplyToRem(rem)
		if err != nil {
			return SimulationResult{}, err
		}
		rem = nextRem

		stats = append(stats, present.EvalEvent{
			Type:          evType,
			Num:           float64(rounds + 1),
			BitsLeftAfter: log2OrInf(rem.Total),
			BitsGained:    c.Information,
			LightsTotal:   lightsTotal,
		})
	}

	return SimulationResult{
		SimID:           simID,
		Seed:            seed,
		Stats:           stats,
		IterationsCount: rounds,
		DurationMs:      clock.Since(start).Milliseconds(),
	}, nil
}

// log2OrInf mirrors internal/present's tri-state information value: zero
// (or negative, degenerate) survivor counts render as +Inf rather than
// panicking on log2(0).
func log2OrInf(total int64) float64 {
	if total <= 0 {
		return math.Inf(1)
	}
	return math.Log2(float64(total))
}

// allBExcept builds the bitset of every B index other than keep, used to
// auto-exclude a confirmed box's slot from every other candidate value.
func allBExcept(sizeB, keep int) bitset.Bitset {
	var out bitset.Bitset
	for i := 0; i < sizeB; i++ {
		if i != keep {
			out = out.Insert(i)
		}
	}
	return out
}

// sampleHidden picks one candidate uniformly at random from the ruleset's
// full enumeration via reservoir sampling, so no kind-specific sampling
// code is needed — a simulation's hidden solution is exactly as likely to
// be any given candidate as IterPerms is to produce it.
func sampleHidden(r ruleset.Ruleset, sizeA int, rng *rand.Rand) (matching.M, error) {
	var chosen matching.M
	seen := 0
	err := r.IterPerms(sizeA, func(_ int, cand matching.M) error {
		seen++
		if rng.IntN(seen) == 0 {
			chosen = cand.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if chosen == nil {
		return nil, ayerr.Invariantf("solve", "ruleset produced no candidates for sizeA=%d", sizeA)
	}
	return chosen, nil
}
