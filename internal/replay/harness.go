package replay

import (
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/check"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
)

// #region types

// Step is the outcome of replaying one entry: the per-core decisions and the
// invariant check over them.
type Step struct {
	EntryID string
	Records []evolve.TransitionRecord
	Check   check.Result
}

// Result captures a full replay run. FinalCores is the state after the last
// entry whose check passed.
type Result struct {
	Steps      []Step
	FinalCores []core.EmotionalCore
}

// Mismatch is one divergence between a replay and the fixture's expected
// results.
type Mismatch struct {
	EntryID string
	CoreID  string
	Want    string
	Got     string
}

// Summary aggregates a replay run for display.
type Summary struct {
	Entries      int
	Advances     int
	Retreats     int
	Stays        int
	ChecksFailed int
}

// #endregion types

// #region harness

// Harness replays fixture entries through the evolution engine entirely in
// memory. Nothing touches a database; timestamps advance one minute per
// entry from the given base so runs are deterministic.
type Harness struct {
	engine  *evolve.Engine
	checker *check.Harness
}

// NewHarness builds a replay harness around an engine.
func NewHarness(engine *evolve.Engine) *Harness {
	return &Harness{
		engine:  engine,
		checker: check.NewHarness(check.DefaultConfig()),
	}
}

// Replay runs every fixture entry in order. A step whose invariant check
// fails does not advance the core state, mirroring the live pipeline's
// refusal to persist a rejected evolution.
func (h *Harness) Replay(start []core.EmotionalCore, entries []FixtureEntry, base time.Time) (*Result, error) {
	current := start
	steps := make([]Step, 0, len(entries))

	for i, fe := range entries {
		now := base.Add(time.Duration(i) * time.Minute)
		records, err := h.engine.ProcessEntry(current, fe.ToSignals(), fe.EntryID, now)
		if err != nil {
			return nil, err
		}
		res := h.checker.Run(current, records)
		steps = append(steps, Step{EntryID: fe.EntryID, Records: records, Check: res})

		if res.Passed {
			next := make([]core.EmotionalCore, len(records))
			for j, rec := range records {
				next[j] = rec.Core
			}
			current = next
		}
	}

	return &Result{Steps: steps, FinalCores: current}, nil
}

// #endregion harness

// #region verify

// Verify compares a replay against the fixture's expected results, returning
// one mismatch per divergence. An expectation that names an entry or core
// the replay never produced is itself a mismatch.
func Verify(res *Result, expected []FixtureExpectedResult) []Mismatch {
	byEntry := make(map[string]*Step, len(res.Steps))
	for i := range res.Steps {
		byEntry[res.Steps[i].EntryID] = &res.Steps[i]
	}

	var mismatches []Mismatch
	for _, exp := range expected {
		step, ok := byEntry[exp.EntryID]
		if !ok {
			mismatches = append(mismatches, Mismatch{
				EntryID: exp.EntryID, CoreID: exp.CoreID, Want: exp.Action, Got: "entry not replayed",
			})
			continue
		}
		got := ""
		for _, rec := range step.Records {
			if rec.Core.ID == exp.CoreID {
				got = rec.Action()
				break
			}
		}
		if got == "" {
			mismatches = append(mismatches, Mismatch{
				EntryID: exp.EntryID, CoreID: exp.CoreID, Want: exp.Action, Got: "core not evaluated",
			})
			continue
		}
		if got != exp.Action {
			mismatches = append(mismatches, Mismatch{
				EntryID: exp.EntryID, CoreID: exp.CoreID, Want: exp.Action, Got: got,
			})
		}
	}
	return mismatches
}

// Summarize aggregates replay results for display.
func Summarize(res *Result) Summary {
	s := Summary{Entries: len(res.Steps)}
	for _, step := range res.Steps {
		if !step.Check.Passed {
			s.ChecksFailed++
		}
		for _, rec := range step.Records {
			switch rec.Action() {
			case evolve.ActionAdvance:
				s.Advances++
			case evolve.ActionRetreat:
				s.Retreats++
			default:
				s.Stays++
			}
		}
	}
	return s
}

// #endregion verify
