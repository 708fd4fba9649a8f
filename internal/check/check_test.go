package check

import (
	"strings"
	"testing"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
)

var now = time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)

// processed builds a snapshot with uniform dwell and runs one entry through
// the real engine, so the harness sees records shaped exactly like production.
func processed(t *testing.T, dwell int, signals map[string]core.ResonanceSignal) ([]core.EmotionalCore, []evolve.TransitionRecord) {
	t.Helper()
	eng := evolve.NewEngine(core.DefaultRegistry())
	before := eng.InitialCores(now)
	for i := range before {
		before[i].EntriesAtDepth = dwell
	}
	records, err := eng.ProcessEntry(before, signals, "entry-1", now)
	if err != nil {
		t.Fatalf("ProcessEntry: %v", err)
	}
	return before, records
}

func metric(t *testing.T, res Result, name string) Metric {
	t.Helper()
	for _, m := range res.Metrics {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("no %q metric in %v", name, res.Metrics)
	return Metric{}
}

func TestRunPassesOnEngineOutput(t *testing.T) {
	before, records := processed(t, 3, map[string]core.ResonanceSignal{
		"optimism": {DepthIndicator: "emerging", ResonanceStrength: 0.7},
	})
	res := NewHarness(DefaultConfig()).Run(before, records)
	if !res.Passed {
		t.Fatalf("engine output failed validation: %s", res.Reason)
	}
	if res.Reason != "all checks passed" {
		t.Errorf("reason = %q", res.Reason)
	}
	for _, m := range res.Metrics {
		if !m.Pass {
			t.Errorf("metric %s failed with value %.0f", m.Name, m.Value)
		}
	}
}

func TestRunCatchesLevelOutsideRange(t *testing.T) {
	before, records := processed(t, 0, nil)
	records[0].Core.CurrentLevel = 0.9 // dormant tops out at 0.10

	res := NewHarness(DefaultConfig()).Run(before, records)
	if res.Passed {
		t.Fatal("out-of-range level passed")
	}
	if m := metric(t, res, "levels_in_range"); m.Pass || m.Value != 1 {
		t.Errorf("levels_in_range = %+v", m)
	}
	if !strings.Contains(res.Reason, "outside") {
		t.Errorf("reason %q does not explain the range violation", res.Reason)
	}
}

func TestRunCatchesSkippedRung(t *testing.T) {
	before, records := processed(t, 10, nil)
	records[2].Transitioned = true
	records[2].FromDepth = core.Dormant
	records[2].ToDepth = core.Developing
	records[2].Core.Depth = core.Developing
	records[2].Core.CurrentLevel = core.Developing.Midpoint()
	records[2].Core.EntriesAtDepth = 0

	res := NewHarness(DefaultConfig()).Run(before, records)
	if res.Passed {
		t.Fatal("two-rung transition passed")
	}
	if m := metric(t, res, "single_step_transitions"); m.Pass {
		t.Errorf("single_step_transitions = %+v", m)
	}
}

func TestRunCatchesSilentDepthChange(t *testing.T) {
	before, records := processed(t, 2, nil)
	records[1].Core.Depth = core.Emerging
	records[1].Core.CurrentLevel = core.Emerging.Midpoint()

	res := NewHarness(DefaultConfig()).Run(before, records)
	if res.Passed {
		t.Fatal("depth change without a transition record passed")
	}
	if m := metric(t, res, "single_step_transitions"); m.Pass {
		t.Errorf("single_step_transitions = %+v", m)
	}
}

func TestRunCatchesDwellDrift(t *testing.T) {
	before, records := processed(t, 4, nil)
	records[3].Core.EntriesAtDepth = 9 // should be 5

	res := NewHarness(DefaultConfig()).Run(before, records)
	if res.Passed {
		t.Fatal("dwell drift passed")
	}
	if m := metric(t, res, "dwell_bookkeeping"); m.Pass || m.Value != 1 {
		t.Errorf("dwell_bookkeeping = %+v", m)
	}
}

func TestRunCatchesGateViolation(t *testing.T) {
	// Hand-build a record claiming a transition after only one entry of dwell.
	before, _ := processed(t, 1, nil)
	var records []evolve.TransitionRecord
	for _, c := range before {
		updated := c
		updated.EntriesAtDepth = 2
		records = append(records, evolve.TransitionRecord{Core: updated, EntryID: "entry-1"})
	}
	records[0].Transitioned = true
	records[0].FromDepth = core.Dormant
	records[0].ToDepth = core.Emerging
	records[0].Core.Depth = core.Emerging
	records[0].Core.CurrentLevel = core.Emerging.Midpoint()
	records[0].Core.EntriesAtDepth = 0

	res := NewHarness(DefaultConfig()).Run(before, records)
	if res.Passed {
		t.Fatal("transition below minimum dwell passed")
	}
	if m := metric(t, res, "dwell_gate_respected"); m.Pass {
		t.Errorf("dwell_gate_respected = %+v", m)
	}
}

func TestRunCatchesCoverageGaps(t *testing.T) {
	before, records := processed(t, 0, nil)
	res := NewHarness(DefaultConfig()).Run(before, records[:4])
	if res.Passed {
		t.Fatal("missing records passed")
	}
	if m := metric(t, res, "snapshot_coverage"); m.Pass {
		t.Errorf("snapshot_coverage = %+v", m)
	}
}

func TestEvidenceVolumeIsInformational(t *testing.T) {
	before, records := processed(t, 0, nil)
	records[0].Core.SupportingEvidence = []string{"a", "b", "c", "d", "e", "f", "g"}

	res := NewHarness(DefaultConfig()).Run(before, records)
	if !res.Passed {
		t.Fatalf("oversized evidence blocked the entry: %s", res.Reason)
	}
	if m := metric(t, res, "evidence_volume"); m.Pass || m.Value != 1 {
		t.Errorf("evidence_volume = %+v", m)
	}
}
