// Package recommend turns a core snapshot into a short ranked list of
// journaling prompts. Like synergy scores, suggestions are derived on read
// and never stored.
package recommend

import (
	"fmt"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// DefaultLimit is the suggestion count used when the caller passes none.
const DefaultLimit = 3

// #region suggestion
// Suggestion is one journaling prompt tied to the core that motivated it.
type Suggestion struct {
	CoreID  string
	Message string
}

// #endregion suggestion

// #region suggestions
// Suggestions ranks prompts for a snapshot, at most limit of them (limit <= 0
// means DefaultLimit). Ranking runs in three tiers, each walked in registry
// order so output is deterministic for a given snapshot:
//
//  1. cores that transitioned on the most recent entry, while the movement
//     is still fresh,
//  2. cores still dormant,
//  3. a depth-appropriate prompt for every remaining core.
func Suggestions(reg *core.Registry, cores []core.EmotionalCore, limit int) []Suggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}
	byID := make(map[string]core.EmotionalCore, len(cores))
	for _, c := range cores {
		byID[c.ID] = c
	}

	out := make([]Suggestion, 0, limit)
	used := make(map[string]bool, len(cores))

	for _, id := range reg.IDs() {
		c, ok := byID[id]
		if !ok || !justTransitioned(c) {
			continue
		}
		out = append(out, Suggestion{CoreID: id, Message: transitionMessage(c)})
		used[id] = true
		if len(out) == limit {
			return out
		}
	}

	for _, id := range reg.IDs() {
		c, ok := byID[id]
		if !ok || used[id] || c.Depth != core.Dormant {
			continue
		}
		out = append(out, Suggestion{CoreID: id, Message: fmt.Sprintf(depthPrompts[core.Dormant], c.Name)})
		used[id] = true
		if len(out) == limit {
			return out
		}
	}

	for _, id := range reg.IDs() {
		c, ok := byID[id]
		if !ok || used[id] {
			continue
		}
		out = append(out, Suggestion{CoreID: id, Message: fmt.Sprintf(depthPrompts[c.Depth], c.Name)})
		if len(out) == limit {
			return out
		}
	}
	return out
}

// justTransitioned reports whether the core moved on the entry that produced
// this snapshot: dwell resets to zero on a transition and only climbs
// afterwards, so zero dwell plus a recorded transition means "just now".
func justTransitioned(c core.EmotionalCore) bool {
	return c.EntriesAtDepth == 0 && c.LastTransition != nil
}

func transitionMessage(c core.EmotionalCore) string {
	if c.Trend == core.TrendDeclining {
		return fmt.Sprintf("%s slipped back to %s. A short check-in entry can steady it.", c.Name, c.Depth)
	}
	return fmt.Sprintf("%s just reached %s. Write about what shifted while it is fresh.", c.Name, c.Depth)
}

var depthPrompts = map[core.ResonanceDepth]string{
	core.Dormant:      "%s is dormant. Spend one entry on a moment it could have surfaced.",
	core.Emerging:     "%s is emerging. Give it a sentence in your next entry and see what follows.",
	core.Developing:   "%s is developing. Revisit a recent entry and note what has changed since.",
	core.Deepening:    "%s is deepening. Look for one decision this week it quietly shaped.",
	core.Integrated:   "%s is integrated. Reflect on how it holds up when you are under pressure.",
	core.Transcendent: "%s is transcendent. Consider writing about guiding someone else through it.",
}

// #endregion suggestions
