package evolve

import (
	"fmt"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// #region evaluate
// Evaluate applies one journal entry's resonance signal to a single core and
// returns the updated core together with the transition decision. It is a
// pure function: the input core is copied, never mutated in place, and the
// same inputs always produce the same record.
//
// A nil signal is the "entry says nothing about this core" path: the dwell
// counter still advances, everything else is left untouched.
func Evaluate(c core.EmotionalCore, sig *core.ResonanceSignal, entryID string, now time.Time) TransitionRecord {
	if sig == nil {
		c.EntriesAtDepth++
		return TransitionRecord{Core: c, EntryID: entryID}
	}

	// Dwell accrued before this entry is what gates the decision; the entry
	// itself still counts toward dwell when no transition fires.
	dwell := c.EntriesAtDepth

	suggested, ok := core.ParseDepth(sig.DepthIndicator)
	if !ok {
		suggested = c.Depth
	}
	strength := clamp01(sig.ResonanceStrength)

	if !shouldTransition(c.Depth, suggested, dwell, strength) {
		c.EntriesAtDepth = dwell + 1
		c.TransitionSignals = copyStrings(sig.TransitionSignals)
		c.SupportingEvidence = copyStrings(sig.SupportingEvidence)
		c.LastUpdated = now
		return TransitionRecord{Core: c, EntryID: entryID}
	}

	from := c.Depth
	c.PreviousLevel = c.CurrentLevel
	c.CurrentLevel = suggested.Midpoint()
	c.Depth = suggested
	c.EntriesAtDepth = 0
	c.Trend = trendBetween(from, suggested)
	when := now
	c.LastTransition = &when
	c.TransitionSignals = copyStrings(sig.TransitionSignals)
	c.SupportingEvidence = copyStrings(sig.SupportingEvidence)
	c.LastUpdated = now

	return TransitionRecord{
		Core:         c,
		EntryID:      entryID,
		Transitioned: true,
		FromDepth:    from,
		ToDepth:      suggested,
		Reason:       transitionReason(from, suggested, dwell, strength),
	}
}

// #endregion evaluate

// #region policy
// shouldTransition is the hysteresis gate. Rules run in order and the first
// failure ends the evaluation:
//
//  1. the suggested depth must differ from the current one,
//  2. the core must have dwelled at its current depth long enough,
//  3. the suggestion must be exactly one rung away,
//  4. the strength must strictly exceed the current depth's ascent or
//     descent threshold, depending on direction.
//
// All four rules read only the current depth's constants, so a core that is
// mid-ladder is never influenced by where the suggestion points beyond its
// direction.
func shouldTransition(current, suggested core.ResonanceDepth, dwell int, strength float64) bool {
	if suggested == current {
		return false
	}
	if dwell < current.MinimumDwell() {
		return false
	}
	if core.DepthDistance(current, suggested) > 1 {
		return false
	}
	if suggested > current {
		return strength > current.AscentThreshold()
	}
	return strength > current.DescentThreshold()
}

// #endregion policy

// #region helpers
func transitionReason(from, to core.ResonanceDepth, dwell int, strength float64) string {
	if to > from {
		return fmt.Sprintf("strength %.2f cleared the %.2f ascent threshold after %d entries at %s",
			strength, from.AscentThreshold(), dwell, from)
	}
	return fmt.Sprintf("strength %.2f crossed the %.2f descent threshold after %d entries at %s",
		strength, from.DescentThreshold(), dwell, from)
}

func trendBetween(from, to core.ResonanceDepth) core.Trend {
	switch {
	case to > from:
		return core.TrendRising
	case to < from:
		return core.TrendDeclining
	default:
		return core.TrendStable
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func copyStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// #endregion helpers
