package recommend

import (
	"strings"
	"testing"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

var now = time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)

func snapshot() []core.EmotionalCore {
	return core.InitialCores(core.DefaultRegistry(), now)
}

func TestFreshTransitionsRankFirst(t *testing.T) {
	cores := snapshot()
	// curiosity just advanced: dwell reset, transition stamped.
	for i := range cores {
		cores[i].EntriesAtDepth = 2
		if cores[i].ID == "curiosity" {
			cores[i].Depth = core.Emerging
			cores[i].EntriesAtDepth = 0
			cores[i].Trend = core.TrendRising
			when := now
			cores[i].LastTransition = &when
		}
	}

	got := Suggestions(core.DefaultRegistry(), cores, 3)
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(got))
	}
	if got[0].CoreID != "curiosity" {
		t.Fatalf("first suggestion is %s, want the freshly transitioned curiosity", got[0].CoreID)
	}
	if !strings.Contains(got[0].Message, "emerging") {
		t.Errorf("transition message %q does not name the new depth", got[0].Message)
	}
	// Remaining slots fill with dormant cores in registry order.
	if got[1].CoreID != "optimism" || got[2].CoreID != "resilience" {
		t.Errorf("tiers out of order: %s, %s", got[1].CoreID, got[2].CoreID)
	}
}

func TestDecliningTransitionGetsSteadyingMessage(t *testing.T) {
	cores := snapshot()
	for i := range cores {
		if cores[i].ID == "empathy" {
			cores[i].Depth = core.Developing
			cores[i].Trend = core.TrendDeclining
			when := now
			cores[i].LastTransition = &when
		}
	}
	got := Suggestions(core.DefaultRegistry(), cores, 1)
	if len(got) != 1 || got[0].CoreID != "empathy" {
		t.Fatalf("got %v, want a single empathy suggestion", got)
	}
	if !strings.Contains(got[0].Message, "slipped back") {
		t.Errorf("declining message %q has no steadying tone", got[0].Message)
	}
}

func TestDepthPromptsForEstablishedCores(t *testing.T) {
	cores := snapshot()
	// Dwell on every core so nothing counts as freshly transitioned, and
	// raise all depths so the dormant tier is empty.
	for i := range cores {
		cores[i].EntriesAtDepth = 4
		cores[i].Depth = core.ResonanceDepth(1 + i%5)
	}

	got := Suggestions(core.DefaultRegistry(), cores, 6)
	if len(got) != 6 {
		t.Fatalf("got %d suggestions, want 6", len(got))
	}
	for i, s := range got {
		if s.CoreID != cores[i].ID {
			t.Errorf("suggestion %d is %s, want registry order (%s)", i, s.CoreID, cores[i].ID)
		}
		if !strings.Contains(s.Message, cores[i].Name) {
			t.Errorf("message %q does not name the core", s.Message)
		}
	}
}

func TestLimitDefaultsAndCaps(t *testing.T) {
	cores := snapshot()
	if got := Suggestions(core.DefaultRegistry(), cores, 0); len(got) != DefaultLimit {
		t.Errorf("limit 0: got %d, want %d", len(got), DefaultLimit)
	}
	if got := Suggestions(core.DefaultRegistry(), cores, 2); len(got) != 2 {
		t.Errorf("limit 2: got %d, want 2", len(got))
	}
	if got := Suggestions(core.DefaultRegistry(), cores, 50); len(got) != 6 {
		t.Errorf("limit 50: got %d, want one per core", len(got))
	}
}

func TestEachCoreSuggestedAtMostOnce(t *testing.T) {
	cores := snapshot() // all dormant, so tier 2 and tier 3 both match
	got := Suggestions(core.DefaultRegistry(), cores, 12)
	seen := make(map[string]bool)
	for _, s := range got {
		if seen[s.CoreID] {
			t.Fatalf("%s suggested twice", s.CoreID)
		}
		seen[s.CoreID] = true
	}
	if len(got) != 6 {
		t.Fatalf("got %d suggestions, want 6", len(got))
	}
}
