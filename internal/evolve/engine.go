package evolve

import (
	"fmt"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// #region engine
// Engine evaluates every core against one journal entry. It holds only
// immutable configuration; all mutable state lives in the caller's
// EmotionalCore records, so a single Engine value is safe to share.
type Engine struct {
	registry *core.Registry
}

// NewEngine creates an engine backed by the given registry.
func NewEngine(registry *core.Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry exposes the engine's core registry for read-side lookups.
func (e *Engine) Registry() *core.Registry {
	return e.registry
}

// InitialCores is the construction path for first-time users: every
// registered core starts dormant at the dormant midpoint.
func (e *Engine) InitialCores(now time.Time) []core.EmotionalCore {
	return core.InitialCores(e.registry, now)
}

// ProcessEntry evaluates all cores against one entry's signals and returns
// one record per input core, in input order. Each evaluation sees only the
// snapshot it was handed, so cores never react to each other's updates and
// the result does not depend on iteration order.
//
// A core id with no registered configuration is a wiring bug and fails the
// whole call. A core id missing from signals is the normal "no evidence"
// case and only advances that core's dwell counter.
func (e *Engine) ProcessEntry(cores []core.EmotionalCore, signals map[string]core.ResonanceSignal, entryID string, now time.Time) ([]TransitionRecord, error) {
	records := make([]TransitionRecord, 0, len(cores))
	for _, c := range cores {
		if _, ok := e.registry.Get(c.ID); !ok {
			return nil, fmt.Errorf("process entry %s: core %q has no registered config", entryID, c.ID)
		}
		if sig, ok := signals[c.ID]; ok {
			records = append(records, Evaluate(c, &sig, entryID, now))
		} else {
			records = append(records, Evaluate(c, nil, entryID, now))
		}
	}
	return records, nil
}

// #endregion engine
