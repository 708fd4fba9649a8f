package core

// #region resonance-signal
// ResonanceSignal is the per-entry, per-core verdict of a journal analyzer.
// Signals feed exactly one evaluation and are never persisted by the engine.
type ResonanceSignal struct {
	// DepthIndicator names the depth this entry evidences for the core,
	// matched case-insensitively against the ladder names. An unrecognized
	// name is read as "no suggested change".
	DepthIndicator string

	// ResonanceStrength is the analyzer's confidence in the indicator.
	// Values are clamped to [0, 1] at evaluation time.
	ResonanceStrength float64

	// TransitionSignals are short analyzer-phrased observations about the
	// core's movement, surfaced to the user alongside the core.
	TransitionSignals []string

	// SupportingEvidence quotes or paraphrases the entry text that backs
	// the verdict.
	SupportingEvidence []string
}

// #endregion resonance-signal
