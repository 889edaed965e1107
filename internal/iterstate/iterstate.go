// Package iterstate drives every candidate matching a ruleset can produce
// through a season's constraints in sequence, counting raw frequencies,
// survivors, and feeding each constraint its own elimination bookkeeping —
// spec.md §4.5's single enumeration pass.
//
// Grounded on the teacher's sdk/solver.Trainer.Run shape: a single pass
// over work items with a progress callback invoked on a batch cadence,
// and an optional cache file read on one path, written on another — the
// same role Trainer's checkpoint read/write plays, just for enumeration
// results instead of training state.
package iterstate

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/atticus-sullivan/sim-ayto-go/internal/ayerr"
	"github.com/atticus-sullivan/sim-ayto-go/internal/bitset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/constraint"
	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
	"github.com/atticus-sullivan/sim-ayto-go/internal/ruleset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/rulesetdata"
)

// QueryPair asks Run to report how many survivors place b at slot a.
type QueryPair struct {
	SlotA int
	ValB  int
}

// Config parametrizes one enumeration run.
type Config struct {
	Ruleset ruleset.Ruleset
	SizeA   int
	SizeB   int

	// Constraints are fed every generated candidate, in order, during the
	// single enumeration pass: spec.md §4.5 step 2 stops at the first one
	// that rejects a candidate, and only that constraint's own
	// eliminated/eliminated_tab accumulates for it.
	Constraints []*constraint.Constraint

	// QueryMatchings are traced: for each, Run reports whether it is still
	// among the survivors.
	QueryMatchings []matching.M
	// QueryPairs are traced: for each, Run reports how many survivors
	// place ValB at SlotA.
	QueryPairs []QueryPair

	// CacheIn, if non-empty, is streamed instead of re-running the
	// ruleset's combinatorial generator; a file that cannot be opened is a
	// Cache error.
	CacheIn string
	// CacheOut, if non-empty, receives one JSON line per surviving
	// candidate as it is produced.
	CacheOut string

	// OnProgress, if set, is invoked periodically with (examined, total)
	// — total is the ruleset's PermsAmount, also when streaming from cache.
	// Wired by cmd/ayto-sim into a bubbles progress bar.
	OnProgress func(examined int, total int64)

	// Materialize, if set, collects every surviving candidate into
	// Result.Possibilities. Off by default since most callers only need
	// the aggregated Rem/Tracker; the solver's incremental possibilities/
	// rem maintenance (spec.md §4.8) is the one caller that needs the
	// concrete list.
	Materialize bool
}

// Result is what a Run produces: the surviving count, the remaining-
// possibility matrix over every candidate examined (unfiltered — it is
// the raw per-pair frequency table before any constraint is folded in),
// the ruleset's side-statistics tracker, and any traced query results.
type Result struct {
	Total           int64
	Survivors       int
	Rem             matching.Rem
	Tracker         rulesetdata.Tracker
	QueryMatchings  []bool
	QueryPairCounts []int64

	// Possibilities holds every surviving candidate, in enumeration order,
	// when Config.Materialize is set.
	Possibilities []matching.M
}

// Run enumerates every candidate (from cache or from scratch) and scores
// it against every constraint in order, stopping at the first rejection
// per candidate. Each constraint accumulates its own eliminated/
// eliminated_tab bookkeeping as a side effect — Run itself only tallies
// the raw per-pair frequency table and survivor count.
func Run(cfg Config) (Result, error) {
	sizeB := cfg.SizeB
	if sizeB == 0 {
		sizeB = cfg.Ruleset.SizeB(cfg.SizeA)
	}
	res := Result{
		Total:           cfg.Ruleset.PermsAmount(cfg.SizeA).Int64(),
		Rem:             matching.NewRem(cfg.SizeA, sizeB),
		Tracker:         rulesetdata.New(cfg.Ruleset),
		QueryMatchings:  make([]bool, len(cfg.QueryMatchings)),
		QueryPairCounts: make([]int64, len(cfg.QueryPairs)),
	}

	var out *bufio.Writer
	var outFile *os.File
	if cfg.CacheOut != "" {
		f, err := os.Create(cfg.CacheOut)
		if err != nil {
			return res, ayerr.IOf(cfg.CacheOut, "create cache file: %w", err)
		}
		outFile = f
		out = bufio.NewWriter(f)
		defer func() {
			out.Flush()
			outFile.Close()
		}()
	}

	examined := 0
	process := func(cand matching.M) error {
		examined++
		for a, slot := range cand {
			slot.Iter(func(b int) bool {
				res.Rem.Counts[a][b]++
				return true
			})
		}

		survived := true
		for _, c := range cfg.Constraints {
			if !c.Process(cand) {
				survived = false
				break
			}
		}

		if survived {
			res.Survivors++
			res.Tracker.Observe(cand)
			if cfg.Materialize {
				res.Possibilities = append(res.Possibilities, cand.Clone())
			}
			for i, q := range cfg.QueryMatchings {
				if cand.CalculateLights(q) == len(cand) {
					res.QueryMatchings[i] = true
				}
			}
			for i, qp := range cfg.QueryPairs {
				if qp.SlotA < len(cand) && cand[qp.SlotA].Contains(qp.ValB) {
					res.QueryPairCounts[i]++
				}
			}
			if out != nil {
				if err := writeCacheLine(out, cand); err != nil {
					return err
				}
			}
		}

		if cfg.OnProgress != nil && examined%4096 == 0 {
			cfg.OnProgress(examined, res.Total)
		}
		return nil
	}

	var err error
	if cfg.CacheIn != "" {
		err = streamCache(cfg.CacheIn, process)
	} else {
		err = cfg.Ruleset.IterPerms(cfg.SizeA, func(_ int, cand matching.M) error {
			return process(cand)
		})
	}
	if err != nil {
		return res, err
	}
	// Rem starts as the full, unfiltered per-pair frequency table over
	// every candidate the ruleset can produce — constraints fold into it
	// one at a time via Constraint.ApplyToRem, so its Total here must be
	// the pre-filter combinatorial count, not the post-filter survivor
	// count.
	res.Rem.Total = res.Total
	if cfg.OnProgress != nil {
		cfg.OnProgress(examined, res.Total)
	}
	return res, nil
}

// writeCacheLine appends one candidate to the cache file as a JSON array
// of per-slot member lists.
func writeCacheLine(w *bufio.Writer, cand matching.M) error {
	rows := make([][]int, len(cand))
	for i, slot := range cand {
		rows[i] = slot.Idxs()
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return ayerr.IOf("cache", "marshal candidate: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return ayerr.IOf("cache", "write candidate: %w", err)
	}
	return w.WriteByte('\n')
}

// streamCache decodes a previously written cache file line by line,
// bypassing algorithmic enumeration entirely.
func streamCache(path string, process func(matching.M) error) error {
	f, err := os.Open(path)
	if err != nil {
		return ayerr.Cachef(path, "open cache file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		var rows [][]int
		if err := json.Unmarshal(sc.Bytes(), &rows); err != nil {
			return ayerr.Cachef(path, "decode cache line: %w", err)
		}
		cand := make(matching.M, len(rows))
		for i, r := range rows {
			cand[i] = bitset.FromIdxs(r)
		}
		if err := process(cand); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return ayerr.Cachef(path, "scan cache file: %w", err)
	}
	return nil
}
