package check

import (
	"fmt"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
)

// #region check-harness
// Harness runs lightweight validation on the engine's output for one entry
// before it is committed. It catches wiring mistakes, not analyzer quality:
// every check compares the records against the snapshot they were computed
// from and the ladder's own constants.
type Harness struct {
	config Config
}

// NewHarness creates a harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Run validates one entry's records against the pre-entry snapshot.
// Returns pass/fail with per-check violation counts.
func (h *Harness) Run(before []core.EmotionalCore, records []evolve.TransitionRecord) Result {
	var metrics []Metric
	passed := true
	var failReasons []string

	prior := make(map[string]core.EmotionalCore, len(before))
	for _, c := range before {
		prior[c.ID] = c
	}

	// 1. Coverage: one record per snapshot core, nothing invented.
	coverage := 0
	if len(records) != len(before) {
		coverage++
		failReasons = append(failReasons, fmt.Sprintf("%d records for %d cores", len(records), len(before)))
	}
	for _, rec := range records {
		if _, ok := prior[rec.Core.ID]; !ok {
			coverage++
			failReasons = append(failReasons, fmt.Sprintf("record for %q matches no snapshot core", rec.Core.ID))
		}
	}
	coveragePass := coverage == 0
	metrics = append(metrics, Metric{Name: "snapshot_coverage", Value: float64(coverage), Pass: coveragePass})
	if !coveragePass {
		passed = false
	}

	// 2. Levels sit inside their depth's range.
	badRange := 0
	for _, rec := range records {
		if !rec.Core.Depth.Contains(rec.Core.CurrentLevel) {
			badRange++
			failReasons = append(failReasons, fmt.Sprintf("%s level %.3f outside %s range", rec.Core.ID, rec.Core.CurrentLevel, rec.Core.Depth))
		}
	}
	rangePass := badRange == 0
	metrics = append(metrics, Metric{Name: "levels_in_range", Value: float64(badRange), Pass: rangePass})
	if !rangePass {
		passed = false
	}

	// 3. Transitions move exactly one rung, from the snapshot depth to the
	// updated depth.
	badStep := 0
	for _, rec := range records {
		was, ok := prior[rec.Core.ID]
		if !ok {
			continue
		}
		if rec.Transitioned {
			if rec.FromDepth != was.Depth || rec.ToDepth != rec.Core.Depth || core.DepthDistance(rec.FromDepth, rec.ToDepth) != 1 {
				badStep++
				failReasons = append(failReasons, fmt.Sprintf("%s moved %s -> %s", rec.Core.ID, rec.FromDepth, rec.ToDepth))
			}
		} else if rec.Core.Depth != was.Depth {
			badStep++
			failReasons = append(failReasons, fmt.Sprintf("%s changed depth without a transition record", rec.Core.ID))
		}
	}
	stepPass := badStep == 0
	metrics = append(metrics, Metric{Name: "single_step_transitions", Value: float64(badStep), Pass: stepPass})
	if !stepPass {
		passed = false
	}

	// 4. Dwell bookkeeping: reset on transition, incremented otherwise.
	badDwell := 0
	for _, rec := range records {
		was, ok := prior[rec.Core.ID]
		if !ok {
			continue
		}
		want := was.EntriesAtDepth + 1
		if rec.Transitioned {
			want = 0
		}
		if rec.Core.EntriesAtDepth != want {
			badDwell++
			failReasons = append(failReasons, fmt.Sprintf("%s dwell %d, want %d", rec.Core.ID, rec.Core.EntriesAtDepth, want))
		}
	}
	dwellPass := badDwell == 0
	metrics = append(metrics, Metric{Name: "dwell_bookkeeping", Value: float64(badDwell), Pass: dwellPass})
	if !dwellPass {
		passed = false
	}

	// 5. No transition without the minimum dwell at the departed depth.
	badGate := 0
	for _, rec := range records {
		was, ok := prior[rec.Core.ID]
		if !ok || !rec.Transitioned {
			continue
		}
		if was.EntriesAtDepth < was.Depth.MinimumDwell() {
			badGate++
			failReasons = append(failReasons, fmt.Sprintf("%s left %s after %d entries, minimum %d", rec.Core.ID, was.Depth, was.EntriesAtDepth, was.Depth.MinimumDwell()))
		}
	}
	gatePass := badGate == 0
	metrics = append(metrics, Metric{Name: "dwell_gate_respected", Value: float64(badGate), Pass: gatePass})
	if !gatePass {
		passed = false
	}

	// 6. Evidence volume: informational, not blocking.
	oversized := 0
	for _, rec := range records {
		if len(rec.Core.TransitionSignals) > h.config.MaxEvidenceItems || len(rec.Core.SupportingEvidence) > h.config.MaxEvidenceItems {
			oversized++
		}
	}
	metrics = append(metrics, Metric{Name: "evidence_volume", Value: float64(oversized), Pass: oversized == 0})
	// Note: oversized evidence is trimmed by display code, does not fail.

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("validation failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("validation failed: %d violations: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion check-harness
