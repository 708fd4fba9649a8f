package core

import "time"

// #region trend
// Trend summarizes the direction of a core's most recent depth movement.
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// #endregion trend

// #region emotional-core
// EmotionalCore is the mutable per-user record for one core. It is owned by
// the store and mutated only through the transition evaluator, exactly once
// per journal entry.
type EmotionalCore struct {
	ID          string
	Name        string
	Description string
	Color       string
	Icon        string

	CurrentLevel   float64
	PreviousLevel  float64
	Depth          ResonanceDepth
	EntriesAtDepth int
	LastTransition *time.Time
	Trend          Trend

	// Evidence carried over from the most recent signal, kept for display.
	TransitionSignals  []string
	SupportingEvidence []string

	LastUpdated time.Time
}

// #endregion emotional-core

// #region initial-cores
// InitialCores builds first-time state for every registered core: dormant,
// level at the dormant midpoint, stable trend, no dwell history.
func InitialCores(reg *Registry, now time.Time) []EmotionalCore {
	cfgs := reg.All()
	cores := make([]EmotionalCore, 0, len(cfgs))
	for _, cfg := range cfgs {
		cores = append(cores, EmotionalCore{
			ID:            cfg.ID,
			Name:          cfg.Name,
			Description:   cfg.Description,
			Color:         cfg.Color,
			Icon:          cfg.Icon,
			CurrentLevel:  Dormant.Midpoint(),
			PreviousLevel: Dormant.Midpoint(),
			Depth:         Dormant,
			Trend:         TrendStable,
			LastUpdated:   now,
		})
	}
	return cores
}

// #endregion initial-cores
