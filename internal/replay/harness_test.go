package replay

import (
	"reflect"
	"testing"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
)

func newTestHarness() *Harness {
	return NewHarness(evolve.NewEngine(core.DefaultRegistry()))
}

func freshCores(now time.Time) []core.EmotionalCore {
	return core.InitialCores(core.DefaultRegistry(), now)
}

func signalEntry(entryID, coreID, indicator string, strength float64) FixtureEntry {
	return FixtureEntry{
		EntryID: entryID,
		Signals: map[string]FixtureSignal{
			coreID: {DepthIndicator: indicator, ResonanceStrength: strength},
		},
	}
}

// #region harness-tests

// TestReplay_AdvanceOnFourthEntry builds the canonical first-advance sequence
// in code: three qualifying entries accrue dwell at dormant, the fourth clears
// the gate.
func TestReplay_AdvanceOnFourthEntry(t *testing.T) {
	base := fixtureBase
	entries := []FixtureEntry{
		signalEntry("entry-1", "optimism", "emerging", 0.7),
		signalEntry("entry-2", "optimism", "emerging", 0.7),
		signalEntry("entry-3", "optimism", "emerging", 0.7),
		signalEntry("entry-4", "optimism", "emerging", 0.7),
	}

	res, err := newTestHarness().Replay(freshCores(base), entries, base)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(res.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(res.Steps))
	}

	// 1. First three entries stay everywhere.
	for i := 0; i < 3; i++ {
		for _, rec := range res.Steps[i].Records {
			if rec.Transitioned {
				t.Errorf("step %d: %s transitioned before the dwell gate lifted", i, rec.Core.ID)
			}
		}
	}

	// 2. The fourth entry moves optimism and nothing else.
	for _, rec := range res.Steps[3].Records {
		if rec.Core.ID == "optimism" {
			if rec.Action() != evolve.ActionAdvance {
				t.Errorf("optimism action = %s, want advance", rec.Action())
			}
			if rec.FromDepth != core.Dormant || rec.ToDepth != core.Emerging {
				t.Errorf("optimism moved %s -> %s, want dormant -> emerging", rec.FromDepth, rec.ToDepth)
			}
		} else if rec.Transitioned {
			t.Errorf("%s transitioned without any signal", rec.Core.ID)
		}
	}

	// 3. Final state reflects the move, stamped with the fourth entry's clock
	//    (base plus one minute per entry).
	for _, c := range res.FinalCores {
		if c.ID != "optimism" {
			continue
		}
		if c.Depth != core.Emerging || c.EntriesAtDepth != 0 {
			t.Errorf("optimism = depth %s dwell %d, want emerging dwell 0", c.Depth, c.EntriesAtDepth)
		}
		if c.LastTransition == nil || !c.LastTransition.Equal(base.Add(3*time.Minute)) {
			t.Errorf("optimism LastTransition = %v, want %v", c.LastTransition, base.Add(3*time.Minute))
		}
	}

	// 4. Every step passes validation.
	for i, step := range res.Steps {
		if !step.Check.Passed {
			t.Errorf("step %d check failed: %s", i, step.Check.Reason)
		}
	}
}

// TestReplay_RejectedStepDoesNotAdvanceState seeds a core whose level sits
// outside its depth's range. Every step fails validation, so the replayed
// state must still be the seeded one at the end — the same refusal the live
// pipeline applies before persisting.
func TestReplay_RejectedStepDoesNotAdvanceState(t *testing.T) {
	base := fixtureBase
	broken := []core.EmotionalCore{{
		ID:           "optimism",
		Name:         "Optimism",
		CurrentLevel: 0.9,
		Depth:        core.Dormant,
		Trend:        core.TrendStable,
		LastUpdated:  base,
	}}
	entries := []FixtureEntry{
		{EntryID: "entry-1"},
		{EntryID: "entry-2"},
	}

	res, err := newTestHarness().Replay(broken, entries, base)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	for i, step := range res.Steps {
		if step.Check.Passed {
			t.Errorf("step %d passed validation with an out-of-range level", i)
		}
	}
	if got := res.FinalCores[0].EntriesAtDepth; got != 0 {
		t.Errorf("dwell = %d, want 0: rejected steps must not advance state", got)
	}
	if sum := Summarize(res); sum.ChecksFailed != 2 {
		t.Errorf("ChecksFailed = %d, want 2", sum.ChecksFailed)
	}
}

// TestReplay_IgnoresStraySignal: a signal keyed by an id that matches no core
// is analyzer noise and must not disturb the replay.
func TestReplay_IgnoresStraySignal(t *testing.T) {
	base := fixtureBase
	entries := []FixtureEntry{signalEntry("entry-1", "stoicism", "emerging", 0.7)}

	res, err := newTestHarness().Replay(freshCores(base), entries, base)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, rec := range res.Steps[0].Records {
		if rec.Transitioned {
			t.Errorf("%s moved on a signal meant for no one", rec.Core.ID)
		}
	}
}

// TestReplay_PropagatesEngineError: a start core the registry does not know
// is a wiring bug and fails the whole replay.
func TestReplay_PropagatesEngineError(t *testing.T) {
	base := fixtureBase
	start := []core.EmotionalCore{{ID: "focus", Depth: core.Dormant, CurrentLevel: 0.05}}
	entries := []FixtureEntry{{EntryID: "entry-1"}}

	if _, err := newTestHarness().Replay(start, entries, base); err == nil {
		t.Fatal("expected error for unregistered start core, got nil")
	}
}

// TestVerify_FlagsDivergence covers each mismatch shape: wrong action, an
// entry the replay never produced, and a core the entry never evaluated.
func TestVerify_FlagsDivergence(t *testing.T) {
	base := fixtureBase
	entries := []FixtureEntry{signalEntry("entry-1", "optimism", "emerging", 0.9)}
	res, err := newTestHarness().Replay(freshCores(base), entries, base)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	// Dwell is zero, so even a 0.9 signal stays.
	if got := Verify(res, []FixtureExpectedResult{
		{EntryID: "entry-1", CoreID: "optimism", Action: evolve.ActionStay},
	}); len(got) != 0 {
		t.Fatalf("expected clean verify, got %v", got)
	}

	mismatches := Verify(res, []FixtureExpectedResult{
		{EntryID: "entry-1", CoreID: "optimism", Action: evolve.ActionAdvance},
		{EntryID: "entry-99", CoreID: "optimism", Action: evolve.ActionStay},
		{EntryID: "entry-1", CoreID: "stoicism", Action: evolve.ActionStay},
	})
	if len(mismatches) != 3 {
		t.Fatalf("expected 3 mismatches, got %d: %v", len(mismatches), mismatches)
	}
	if mismatches[0].Want != evolve.ActionAdvance || mismatches[0].Got != evolve.ActionStay {
		t.Errorf("mismatch 0 = %+v, want advance vs stay", mismatches[0])
	}
	if mismatches[1].Got != "entry not replayed" {
		t.Errorf("mismatch 1 got = %q, want \"entry not replayed\"", mismatches[1].Got)
	}
	if mismatches[2].Got != "core not evaluated" {
		t.Errorf("mismatch 2 got = %q, want \"core not evaluated\"", mismatches[2].Got)
	}
}

// TestSummarize_Counts tallies the canonical advance sequence: four entries,
// six cores each, exactly one advance among the stays.
func TestSummarize_Counts(t *testing.T) {
	base := fixtureBase
	entries := []FixtureEntry{
		signalEntry("entry-1", "optimism", "emerging", 0.7),
		signalEntry("entry-2", "optimism", "emerging", 0.7),
		signalEntry("entry-3", "optimism", "emerging", 0.7),
		signalEntry("entry-4", "optimism", "emerging", 0.7),
	}
	res, err := newTestHarness().Replay(freshCores(base), entries, base)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	perEntry := core.DefaultRegistry().Len()
	want := Summary{
		Entries:  4,
		Advances: 1,
		Stays:    4*perEntry - 1,
	}
	if got := Summarize(res); got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
}

// TestReplay_Deterministic runs the same fixture twice and requires
// identical results, records and timestamps included.
func TestReplay_Deterministic(t *testing.T) {
	base := fixtureBase
	entries := []FixtureEntry{
		signalEntry("entry-1", "creativity", "emerging", 0.8),
		signalEntry("entry-2", "creativity", "emerging", 0.5),
		{EntryID: "entry-3"},
		signalEntry("entry-4", "creativity", "emerging", 0.61),
	}

	first, err := newTestHarness().Replay(freshCores(base), entries, base)
	if err != nil {
		t.Fatalf("first Replay: %v", err)
	}
	second, err := newTestHarness().Replay(freshCores(base), entries, base)
	if err != nil {
		t.Fatalf("second Replay: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical replays produced different results")
	}
}

// #endregion harness-tests
