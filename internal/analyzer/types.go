package analyzer

import (
	"context"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// #region journal-entry
// JournalEntry is one piece of user writing handed to an analyzer.
type JournalEntry struct {
	ID        string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// #endregion journal-entry

// #region analyzer
// Analyzer produces per-core resonance signals for one journal entry. The
// returned map is keyed by core id; cores the entry says nothing about are
// simply absent, which the engine reads as "dwell only".
//
// Implementations receive the current cores so they can describe where each
// one stands, but they must not mutate them.
type Analyzer interface {
	Analyze(ctx context.Context, entry JournalEntry, cores []core.EmotionalCore) (map[string]core.ResonanceSignal, error)
}

// #endregion analyzer
