// Package present turns a season's internal EvalData trace into the
// output artifacts spec.md §6 describes: the EvalEvent/SumCounts JSON
// written to stats.json, and — since the spec names terminal tables as
// "out of scope, specified by interface only" but a caller still needs
// something to print — one small concrete table renderer good enough for
// cmd/ayto-sim to exercise. Markdown/HTML/Plotly/dot rendering stay pure
// interface, unimplemented, exactly as spec.md §1 scopes them out.
package present

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atticus-sullivan/sim-ayto-go/internal/ayerr"
	"github.com/atticus-sullivan/sim-ayto-go/internal/constraint"
	"github.com/atticus-sullivan/sim-ayto-go/internal/season"
)

// EventType discriminates the three EvalEvent shapes spec.md §6 names.
type EventType string

const (
	EventInitial EventType = "Initial"
	EventMB      EventType = "MB"
	EventMN      EventType = "MN"
)

// EvalEvent is one row of stats.json's "events" array.
type EvalEvent struct {
	Type              EventType `json:"type"`
	Num               float64   `json:"num"`
	BitsLeftAfter     float64   `json:"bits_left_after"`
	BitsGained        float64   `json:"bits_gained"`
	LightsTotal       *int      `json:"lights_total,omitempty"`
	LightsKnownBefore int       `json:"lights_known_before"`
	Comment           string    `json:"comment,omitempty"`
	Offer             string    `json:"offer,omitempty"`
}

// SumCounts is stats.json's "cnts" object: season-level derived totals.
type SumCounts struct {
	Blackouts    int            `json:"blackouts"`
	Won          *bool          `json:"won,omitempty"`
	MatchesFound int            `json:"matches_found"`
	Solvable     *bool          `json:"solvable,omitempty"`
	Sold         int            `json:"sold"`
	OfferTotals  map[string]int `json:"offer_totals,omitempty"`
}

// Stats is the full stats.json document.
type Stats struct {
	Events []EvalEvent `json:"events"`
	Cnts   SumCounts   `json:"cnts"`
}

// BuildStats renders a season's evaluated EvalData into the stats.json
// shape. Hidden constraints (Constraint.Hidden) do not get their own
// EvalEvent row — spec.md §3's "fold statistics into the next visible
// constraint" — so their bits_gained accumulates into whichever
// non-hidden event follows them.
func BuildStats(total0 int64, data season.EvalData, ignoreBoxes bool) Stats {
	var events []EvalEvent
	events = append(events, EvalEvent{
		Type:          EventInitial,
		BitsLeftAfter: log2OrInf(total0),
	})

	pendingBits := 0.0
	knownLights := 0
	blackouts := 0
	sold := 0
	matchesFound := 0
	offerTotals := map[string]int{}

	for _, step := range data.Steps {
		if ignoreBoxes && step.Kind == constraint.Box {
			continue
		}
		pendingBits += step.InfoBits

		if step.Kind == constraint.Box && step.LightsTotal == nil {
			// A sold box with no lights-count bookkeeping: count it.
			// Hidden constraints never reach here — season.Evaluate folds
			// their bookkeeping into the next non-hidden step instead of
			// emitting a StepResult of their own.
			sold++
		}

		evType := EventMB
		if step.Kind == constraint.Night {
			evType = EventMN
		}

		ev := EvalEvent{
			Type:              evType,
			Num:               step.Num.Float64(),
			BitsLeftAfter:     log2OrInf(step.Survivors),
			BitsGained:        pendingBits,
			LightsTotal:       step.LightsTotal,
			LightsKnownBefore: knownLights,
			Comment:           step.Comment,
			Offer:             step.Offer,
		}
		events = append(events, ev)
		pendingBits = 0

		if step.Offer != "" {
			offerTotals[step.Offer]++
		}

		if step.Kind == constraint.Night {
			if step.LightsTotal != nil && *step.LightsTotal == knownLights {
				blackouts++
			}
			if step.LightsTotal != nil {
				knownLights = *step.LightsTotal
			}
		} else if step.LightsTotal == nil {
			// Box: a true ("sold") box always reveals exactly one match.
			matchesFound++
		}
	}

	var won, solvable *bool
	if n := len(data.Steps); n > 0 {
		last := data.Steps[n-1]
		w := last.Kind == constraint.Night && last.Survivors == 1
		won = &w
		s := last.Survivors > 0
		solvable = &s
	}

	return Stats{
		Events: events,
		Cnts: SumCounts{
			Blackouts:    blackouts,
			Won:          won,
			MatchesFound: matchesFound,
			Solvable:     solvable,
			Sold:         sold,
			OfferTotals:  offerTotals,
		},
	}
}

// log2OrInf implements the tri-state {0, positive finite, infinite}
// information value spec.md §9's Open Questions call for: zero survivors
// (every candidate eliminated, a contradictory season) renders as +Inf
// rather than panicking on log2(0).
func log2OrInf(survivors int64) float64 {
	if survivors <= 0 {
		return math.Inf(1)
	}
	return math.Log2(float64(survivors))
}

// SeasonComparison is the supplemented cross-season summary (SPEC_FULL.md
// §6, grounded on original_source/rust/src/comparison/{summary,lights,
// information}.rs): a per-step diff of bits-gained and lights between two
// already-evaluated seasons, without any HTML/Plotly rendering.
type SeasonComparison struct {
	Steps []StepDiff
}

// StepDiff is one aligned step of a two-season comparison.
type StepDiff struct {
	Index          int
	BitsGainedA    float64
	BitsGainedB    float64
	BitsGainedDiff float64
	LightsA        *int
	LightsB        *int
}

// CompareSeasons aligns two seasons' EvalData step-by-step (by position,
// not by constraint number — seasons being compared need not share an
// episode structure) and reports the per-step bits/lights delta.
func CompareSeasons(a, b season.EvalData) SeasonComparison {
	n := len(a.Steps)
	if len(b.Steps) < n {
		n = len(b.Steps)
	}
	out := SeasonComparison{Steps: make([]StepDiff, 0, n)}
	for i := 0; i < n; i++ {
		sa, sb := a.Steps[i], b.Steps[i]
		out.Steps = append(out.Steps, StepDiff{
			Index:          i,
			BitsGainedA:    sa.InfoBits,
			BitsGainedB:    sb.InfoBits,
			BitsGainedDiff: sa.InfoBits - sb.InfoBits,
			LightsA:        sa.LightsTotal,
			LightsB:        sb.LightsTotal,
		})
	}
	return out
}

// Table is the minimal terminal-table renderer spec.md names as an
// out-of-scope adapter but which needs one concrete implementation for
// cmd/ayto-sim to print something. Transpose swaps rows/cols (the
// --transpose CLI flag from SPEC_FULL.md §6).
type Table struct {
	Headers   []string
	Rows      [][]string
	Transpose bool
}

// Render writes the table as aligned, optionally ANSI-colored, plain text.
// Header styling uses lipgloss, which detects (via termenv, its own
// dependency) whether stdout is a real terminal and degrades to plain text
// automatically when it isn't — the same adaptive-rendering convention the
// bubbletea progress bars in cmd/ayto-sim and cmd/ayto-solver rely on.
func Render(t Table) string {
	headers, rows := t.Headers, t.Rows
	if t.Transpose {
		headers, rows = transpose(t.Headers, t.Rows)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(headerStyle.Render(pad(h, widths[i])))
		if i < len(headers)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteByte('\n')
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				b.WriteString(pad(cell, widths[i]))
			} else {
				b.WriteString(cell)
			}
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func transpose(headers []string, rows [][]string) ([]string, [][]string) {
	newHeaders := make([]string, 0, len(rows)+1)
	newHeaders = append(newHeaders, "")
	for i := range rows {
		newHeaders = append(newHeaders, fmt.Sprintf("row %d", i))
	}
	newRows := make([][]string, len(headers))
	for col, h := range headers {
		newRows[col] = append([]string{h}, make([]string, len(rows))...)
		for r, row := range rows {
			if col < len(row) {
				newRows[col][r+1] = row[col]
			}
		}
	}
	return newHeaders, newRows
}

// RequireEvaluated is a small guard for callers about to render EvalData:
// it turns "season has no steps yet" into the InvariantError taxonomy
// rather than letting callers index an empty slice.
func RequireEvaluated(data season.EvalData) error {
	if len(data.Steps) == 0 {
		return ayerr.Invariantf("present", "season has no evaluated steps")
	}
	return nil
}
