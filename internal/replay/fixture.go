package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. An empty
// start_cores list means a fresh user: every registered core dormant at the
// dormant midpoint.
type Fixture struct {
	Description     string                  `json:"description"`
	StartCores      []FixtureCore           `json:"start_cores,omitempty"`
	Entries         []FixtureEntry          `json:"entries"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty"`
}

// FixtureCore is the slice of core state a replay needs; display fields come
// from the registry at load time.
type FixtureCore struct {
	ID             string  `json:"id"`
	Depth          string  `json:"depth"`
	CurrentLevel   float64 `json:"current_level"`
	PreviousLevel  float64 `json:"previous_level"`
	EntriesAtDepth int     `json:"entries_at_depth"`
}

// FixtureSignal mirrors core.ResonanceSignal with JSON tags.
type FixtureSignal struct {
	DepthIndicator     string   `json:"depth_indicator"`
	ResonanceStrength  float64  `json:"resonance_strength"`
	TransitionSignals  []string `json:"transition_signals,omitempty"`
	SupportingEvidence []string `json:"supporting_evidence,omitempty"`
}

// FixtureEntry is one journal entry's analyzer output, keyed by core id.
// Cores absent from the map dwell without evidence, as in live processing.
type FixtureEntry struct {
	EntryID string                   `json:"entry_id"`
	Signals map[string]FixtureSignal `json:"signals"`
}

// FixtureExpectedResult captures the expected action for one core on one
// entry: advance, retreat, or stay.
type FixtureExpectedResult struct {
	EntryID string `json:"entry_id"`
	CoreID  string `json:"core_id"`
	Action  string `json:"action"`
}

// #endregion fixture-types

// #region fixture-io

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-io

// #region conversions

// StartState converts the fixture's starting cores to domain cores, filling
// display fields from the registry. An empty list yields the initial set.
func (f *Fixture) StartState(reg *core.Registry, now time.Time) ([]core.EmotionalCore, error) {
	if len(f.StartCores) == 0 {
		return core.InitialCores(reg, now), nil
	}
	cores := make([]core.EmotionalCore, 0, len(f.StartCores))
	for _, fc := range f.StartCores {
		cfg, ok := reg.Get(fc.ID)
		if !ok {
			return nil, fmt.Errorf("start core %q is not registered", fc.ID)
		}
		depth, ok := core.ParseDepth(fc.Depth)
		if !ok {
			return nil, fmt.Errorf("start core %s: unknown depth %q", fc.ID, fc.Depth)
		}
		cores = append(cores, core.EmotionalCore{
			ID:             cfg.ID,
			Name:           cfg.Name,
			Description:    cfg.Description,
			Color:          cfg.Color,
			Icon:           cfg.Icon,
			CurrentLevel:   fc.CurrentLevel,
			PreviousLevel:  fc.PreviousLevel,
			Depth:          depth,
			EntriesAtDepth: fc.EntriesAtDepth,
			Trend:          core.TrendStable,
			LastUpdated:    now,
		})
	}
	return cores, nil
}

// ToSignals converts a fixture entry's signals to the domain type.
func (fe *FixtureEntry) ToSignals() map[string]core.ResonanceSignal {
	signals := make(map[string]core.ResonanceSignal, len(fe.Signals))
	for id, fs := range fe.Signals {
		signals[id] = core.ResonanceSignal{
			DepthIndicator:     fs.DepthIndicator,
			ResonanceStrength:  fs.ResonanceStrength,
			TransitionSignals:  fs.TransitionSignals,
			SupportingEvidence: fs.SupportingEvidence,
		}
	}
	return signals
}

// SignalToFixture converts a domain signal for fixture export.
func SignalToFixture(sig core.ResonanceSignal) FixtureSignal {
	return FixtureSignal{
		DepthIndicator:     sig.DepthIndicator,
		ResonanceStrength:  sig.ResonanceStrength,
		TransitionSignals:  sig.TransitionSignals,
		SupportingEvidence: sig.SupportingEvidence,
	}
}

// #endregion conversions
