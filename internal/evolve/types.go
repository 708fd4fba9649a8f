package evolve

import "github.com/innerbloomapp/innerbloom/go-engine/internal/core"

// #region action
// Action labels for a per-core evaluation outcome.
const (
	ActionAdvance = "advance"
	ActionRetreat = "retreat"
	ActionStay    = "stay"
)

// #endregion action

// #region transition-record
// TransitionRecord is the per-core result of evaluating one journal entry:
// the updated core, plus movement details when a depth change fired. The
// transition fields are all-or-nothing: either Transitioned is true and
// FromDepth, ToDepth, and Reason are set, or all three are zero.
type TransitionRecord struct {
	Core         core.EmotionalCore
	EntryID      string
	Transitioned bool
	FromDepth    core.ResonanceDepth
	ToDepth      core.ResonanceDepth
	Reason       string
}

// Action returns the decision label for this record.
func (r TransitionRecord) Action() string {
	if !r.Transitioned {
		return ActionStay
	}
	if r.ToDepth > r.FromDepth {
		return ActionAdvance
	}
	return ActionRetreat
}

// #endregion transition-record
