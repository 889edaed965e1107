// Package season orchestrates a ruleset and a sequence of constraints into
// a full evaluation: one enumeration pass scores every candidate against
// every constraint (spec.md §4.5), then each constraint's own elimination
// bookkeeping is folded into a running Rem in order (spec.md §4.7) —
// hidden constraints merge their stats into the next non-hidden one
// instead of producing their own step.
package season

import (
	"fmt"

	"github.com/atticus-sullivan/sim-ayto-go/internal/ayerr"
	"github.com/atticus-sullivan/sim-ayto-go/internal/constraint"
	"github.com/atticus-sullivan/sim-ayto-go/internal/iterstate"
	"github.com/atticus-sullivan/sim-ayto-go/internal/matching"
	"github.com/atticus-sullivan/sim-ayto-go/internal/ruleset"
	"github.com/atticus-sullivan/sim-ayto-go/internal/rulesetdata"
	"github.com/atticus-sullivan/sim-ayto-go/internal/specfile"
)

// Season is a fully resolved season: its sets, ruleset, and ordered
// constraints.
type Season struct {
	NameA, NameB []string
	IdxA, IdxB   map[string]int
	Ruleset      ruleset.Ruleset
	Constraints  []*constraint.Constraint

	QueryMatchings []matching.M
	QueryPairs     []iterstate.QueryPair

	GenCache bool
}

// FromParsed resolves a specfile.ParsedSpec into a Season: names into
// index maps, the YAML ruleset description into a ruleset.Ruleset, every
// constraint's names into slot/value indices.
func FromParsed(p *specfile.ParsedSpec) (*Season, error) {
	idxA, nameA := specfile.NameIndex(p.SetA, p.RenameA)
	idxB, nameB := specfile.NameIndex(p.SetB, p.RenameB)

	r, err := resolveRuleset(p.RuleSet, idxB)
	if err != nil {
		return nil, err
	}
	sizeB := r.SizeB(len(nameA))

	cs := make([]*constraint.Constraint, 0, len(p.Constraints))
	for _, raw := range p.Constraints {
		c, err := constraint.Resolve(raw, idxA, idxB, len(nameA), sizeB)
		if err != nil {
			return nil, err
		}
		if !raw.HideRulesetData {
			c.RulesetData = rulesetdata.New(r)
		}
		cs = append(cs, c)
	}

	qm := make([]matching.M, 0, len(p.QueryMatchings))
	for i, q := range p.QueryMatchings {
		m := matching.New(len(nameA))
		for aName, bName := range q {
			a, ok := idxA[aName]
			if !ok {
				return nil, ayerr.Specf(fmt.Sprintf("queryMatchings[%d]", i), "unknown A name %q", aName)
			}
			b, ok := idxB[bName]
			if !ok {
				return nil, ayerr.Specf(fmt.Sprintf("queryMatchings[%d]", i), "unknown B name %q", bName)
			}
			m[a] = m[a].Insert(b)
		}
		qm = append(qm, m)
	}

	qp := make([]iterstate.QueryPair, 0)
	for i, q := range p.QueryPair {
		for _, aName := range q.SetA {
			a, ok := idxA[aName]
			if !ok {
				return nil, ayerr.Specf(fmt.Sprintf("queryPair[%d]", i), "unknown A name %q", aName)
			}
			for _, bName := range q.SetB {
				b, ok := idxB[bName]
				if !ok {
					return nil, ayerr.Specf(fmt.Sprintf("queryPair[%d]", i), "unknown B name %q", bName)
				}
				qp = append(qp, iterstate.QueryPair{SlotA: a, ValB: b})
			}
		}
	}

	return &Season{
		NameA: nameA, NameB: nameB,
		IdxA: idxA, IdxB: idxB,
		Ruleset:        r,
		Constraints:    cs,
		QueryMatchings: qm,
		QueryPairs:     qp,
		GenCache:       p.GenCache,
	}, nil
}

func resolveRuleset(spec specfile.RulesetSpec, idxB map[string]int) (ruleset.Ruleset, error) {
	switch spec.Kind {
	case "eq", "":
		return ruleset.NewEq(), nil
	case "x_times_dup":
		fixed := make([]int, 0, len(spec.Fixed))
		for _, name := range spec.Fixed {
			id, ok := idxB[name]
			if !ok {
				return ruleset.Ruleset{}, ayerr.Specf("rule_set", "unknown fixed-dup name %q", name)
			}
			fixed = append(fixed, id)
		}
		return ruleset.NewXTimesDup(spec.Unknown, fixed), nil
	case "someone_is_trip":
		return ruleset.NewSomeoneIsTrip(), nil
	case "fixed_trip":
		id, ok := idxB[spec.TripID]
		if !ok {
			return ruleset.Ruleset{}, ayerr.Specf("rule_set", "unknown trip_id name %q", spec.TripID)
		}
		return ruleset.NewFixedTrip(id), nil
	case "n_to_n":
		return ruleset.NewNToN(), nil
	}
	return ruleset.Ruleset{}, ayerr.Specf("rule_set", "unknown ruleset kind %q", spec.Kind)
}

// SizeA returns the number of A-set members this season's candidates are
// indexed over.
func (s *Season) SizeA() int { return len(s.NameA) }

// StepResult is the outcome of folding one more (non-hidden) constraint
// into the evaluation.
type StepResult struct {
	Num       specfile.ConstraintNum
	Survivors int64
	Total     int64
	InfoBits  float64
	Rem       matching.Rem

	DupHistory []rulesetdata.ProbabilityEntry

	// Kind/Comment/Offer/LightsTotal mirror the originating constraint,
	// carried here so internal/present can build an EvalEvent without
	// re-walking s.Constraints.
	Kind        constraint.Kind
	Comment     string
	Offer       string
	LightsTotal *int
}

// EvalData is the full per-step trace of a season, each entry the state
// after folding in one more non-hidden constraint.
type EvalData struct {
	Steps []StepResult

	// QueryMatchings/QueryPairCounts carry the final-prefix trace results
	// for the season's queryMatchings/queryPair directives (spec.md §6).
	QueryMatchings  []bool
	QueryPairCounts []int64
}

// Evaluate performs the season's single enumeration pass and folds every
// constraint's bookkeeping into a running Rem in order.
func (s *Season) Evaluate(onProgress func(examined int, total int64)) (EvalData, error) {
	return s.EvaluateCached("", onProgress)
}

// EvaluateCached behaves like Evaluate, but when cacheIn names a matching
// cache previously written by the "cache" command, candidates are streamed
// from that cache instead of re-running the ruleset's combinatorial
// generator.
func (s *Season) EvaluateCached(cacheIn string, onProgress func(examined int, total int64)) (EvalData, error) {
	var data EvalData

	res, err := iterstate.Run(iterstate.Config{
		Ruleset:        s.Ruleset,
		SizeA:          s.SizeA(),
		SizeB:          s.Ruleset.SizeB(s.SizeA()),
		Constraints:    s.Constraints,
		QueryMatchings: s.QueryMatchings,
		QueryPairs:     s.QueryPairs,
		CacheIn:        cacheIn,
		OnProgress:     onProgress,
	})
	if err != nil {
		return data, err
	}
	data.QueryMatchings = res.QueryMatchings
	data.QueryPairCounts = res.QueryPairCounts

	rem := res.Rem
	var pendingHidden *constraint.Constraint
	for _, c := range s.Constraints {
		solvable, err := c.WasSolvableBefore()
		if err != nil {
			return data, err
		}
		c.Solvable = solvable

		if c.Hidden {
			if pendingHidden == nil {
				pendingHidden = c
			} else if err := pendingHidden.Merge(c); err != nil {
				return data, err
			}
			continue
		}
		if pendingHidden != nil {
			if err := c.Merge(pendingHidden); err != nil {
				return data, err
			}
			pendingHidden = nil
		}

		next, err := c.ApplyToRem(rem)
		if err != nil {
			return data, err
		}
		rem = next

		var lightsTotal *int
		if c.Kind == constraint.Night {
			l := c.LightsN
			lightsTotal = &l
		}

		var dupHistory []rulesetdata.ProbabilityEntry
		if c.RulesetData != nil {
			dupHistory = rulesetdata.ProbabilityTable(c.RulesetData)
		}

		data.Steps = append(data.Steps, StepResult{
			Num:         c.Num,
			Survivors:   rem.Total,
			Total:       res.Total,
			InfoBits:    c.Information,
			Rem:         rem,
			DupHistory:  dupHistory,
			Kind:        c.Kind,
			Comment:     c.Comment,
			Offer:       c.Offer,
			LightsTotal: lightsTotal,
		})
	}
	return data, nil
}

// Materialize re-enumerates the season (optionally streaming from cacheIn)
// with every constraint applied and returns the concrete surviving
// candidates, for callers that need the literal possibility set rather than
// just its Rem/Tracker summary (e.g. the "--dump" CLI flag).
func (s *Season) Materialize(cacheIn string) ([]matching.M, error) {
	res, err := iterstate.Run(iterstate.Config{
		Ruleset:     s.Ruleset,
		SizeA:       s.SizeA(),
		SizeB:       s.Ruleset.SizeB(s.SizeA()),
		Constraints: s.Constraints,
		CacheIn:     cacheIn,
		Materialize: true,
	})
	if err != nil {
		return nil, err
	}
	return res.Possibilities, nil
}

// Final returns the last step's result, or an error if the season has no
// non-hidden constraints yet.
func (d EvalData) Final() (StepResult, error) {
	if len(d.Steps) == 0 {
		return StepResult{}, ayerr.Invariantf("eval", "season has no constraints to evaluate")
	}
	return d.Steps[len(d.Steps)-1], nil
}

func (d EvalData) String() string {
	if len(d.Steps) == 0 {
		return "(no steps)"
	}
	last := d.Steps[len(d.Steps)-1]
	return fmt.Sprintf("%d steps, final survivors=%d/%d", len(d.Steps), last.Survivors, last.Total)
}
