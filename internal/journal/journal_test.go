package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/analyzer"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/store"
)

var testNow = time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)

type stubAnalyzer struct {
	mu      sync.Mutex
	signals map[string]core.ResonanceSignal
	err     error
	calls   int
}

func (a *stubAnalyzer) Analyze(ctx context.Context, entry analyzer.JournalEntry, cores []core.EmotionalCore) (map[string]core.ResonanceSignal, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.signals, nil
}

func newService(t *testing.T, an analyzer.Analyzer) (*Service, *store.Store) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(evolve.NewEngine(core.DefaultRegistry()), an, st, nil), st
}

func entryAt(id, text string, at time.Time) analyzer.JournalEntry {
	return analyzer.JournalEntry{ID: id, UserID: "user-1", Text: text, CreatedAt: at}
}

func coreByID(t *testing.T, cores []core.EmotionalCore, id string) core.EmotionalCore {
	t.Helper()
	for _, c := range cores {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("core %s not found", id)
	return core.EmotionalCore{}
}

func TestProcessFirstEntryCreatesCores(t *testing.T) {
	svc, st := newService(t, &stubAnalyzer{})

	res, err := svc.Process(context.Background(), entryAt("entry-1", "first ever entry", testNow))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Records) != 6 || len(res.Cores) != 6 {
		t.Fatalf("got %d records, %d cores; want 6 of each", len(res.Records), len(res.Cores))
	}
	if moved := res.Moved(); len(moved) != 0 {
		t.Errorf("first entry moved %d cores, want none", len(moved))
	}
	if !res.Check.Passed {
		t.Errorf("check failed on a clean run: %s", res.Check.Reason)
	}

	cores, err := st.GetCores("user-1")
	if err != nil {
		t.Fatalf("GetCores: %v", err)
	}
	for _, c := range cores {
		if c.EntriesAtDepth != 1 {
			t.Errorf("%s: dwell = %d, want 1", c.ID, c.EntriesAtDepth)
		}
		if c.Depth != core.Dormant {
			t.Errorf("%s: depth = %s, want dormant", c.ID, c.Depth)
		}
	}

	log, err := st.ListTransitions("user-1", 20)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(log) != 6 {
		t.Fatalf("logged %d decisions, want one per core", len(log))
	}
	for _, e := range log {
		if e.Action != evolve.ActionStay || e.FromDepth != "dormant" || e.ToDepth != "dormant" {
			t.Errorf("decision = %+v, want a dormant stay", e)
		}
		if e.EntryID != "entry-1" {
			t.Errorf("decision entry = %s, want entry-1", e.EntryID)
		}
	}
}

func TestProcessAdvanceIsPersistedAndLogged(t *testing.T) {
	an := &stubAnalyzer{signals: map[string]core.ResonanceSignal{
		"optimism": {
			DepthIndicator:     "emerging",
			ResonanceStrength:  0.7,
			TransitionSignals:  []string{"strengthening language around hope"},
			SupportingEvidence: []string{"mentions \"looking forward\""},
		},
	}}
	svc, st := newService(t, an)

	// Dwell gate at dormant needs three prior entries; the fourth advances.
	var res *ProcessResult
	var err error
	for i := 1; i <= 4; i++ {
		res, err = svc.Process(context.Background(), entryAt(
			fmt.Sprintf("entry-%d", i), "kept going", testNow.Add(time.Duration(i)*time.Hour)))
		if err != nil {
			t.Fatalf("Process %d: %v", i, err)
		}
	}

	moved := res.Moved()
	if len(moved) != 1 || moved[0].Core.ID != "optimism" {
		t.Fatalf("moved = %+v, want only optimism", moved)
	}
	if moved[0].FromDepth != core.Dormant || moved[0].ToDepth != core.Emerging {
		t.Errorf("movement = %s to %s, want dormant to emerging", moved[0].FromDepth, moved[0].ToDepth)
	}

	cores, err := st.GetCores("user-1")
	if err != nil {
		t.Fatalf("GetCores: %v", err)
	}
	optimism := coreByID(t, cores, "optimism")
	if optimism.Depth != core.Emerging || optimism.CurrentLevel != core.Emerging.Midpoint() {
		t.Errorf("optimism = depth %s level %.3f, want emerging midpoint", optimism.Depth, optimism.CurrentLevel)
	}
	if optimism.EntriesAtDepth != 0 {
		t.Errorf("optimism dwell = %d after transition, want 0", optimism.EntriesAtDepth)
	}
	wantWhen := testNow.Add(4 * time.Hour)
	if optimism.LastTransition == nil || !optimism.LastTransition.Equal(wantWhen) {
		t.Errorf("optimism LastTransition = %v, want the entry's write time %v", optimism.LastTransition, wantWhen)
	}
	if resilience := coreByID(t, cores, "resilience"); resilience.EntriesAtDepth != 4 {
		t.Errorf("resilience dwell = %d, want 4", resilience.EntriesAtDepth)
	}

	log, err := st.ListTransitions("user-1", 100)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	var advance *store.TransitionEntry
	for i := range log {
		if log[i].Action == evolve.ActionAdvance {
			if advance != nil {
				t.Fatal("more than one advance logged")
			}
			advance = &log[i]
		}
	}
	if advance == nil {
		t.Fatal("no advance row in the transition log")
	}
	if advance.CoreID != "optimism" || advance.EntryID != "entry-4" {
		t.Errorf("advance row = %+v", advance)
	}
	if advance.Reason == "" {
		t.Error("advance row has no reason")
	}
	if advance.Signal == nil || advance.Signal.DepthIndicator != "emerging" {
		t.Errorf("advance row signal = %+v, want the emerging signal", advance.Signal)
	}
}

func TestProcessAnalyzerFailureLeavesStateUntouched(t *testing.T) {
	an := &stubAnalyzer{}
	svc, st := newService(t, an)

	if _, err := svc.Process(context.Background(), entryAt("entry-1", "fine day", testNow)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	an.err = errors.New("model unreachable")
	_, err := svc.Process(context.Background(), entryAt("entry-2", "offline now", testNow.Add(time.Hour)))
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("error = %v, want ErrAnalysisFailed", err)
	}

	cores, err := st.GetCores("user-1")
	if err != nil {
		t.Fatalf("GetCores: %v", err)
	}
	for _, c := range cores {
		if c.EntriesAtDepth != 1 {
			t.Errorf("%s: dwell = %d after failed analysis, want the pre-failure 1", c.ID, c.EntriesAtDepth)
		}
	}
	log, err := st.ListTransitions("user-1", 100)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	for _, e := range log {
		if e.EntryID == "entry-2" {
			t.Fatal("failed entry left rows in the transition log")
		}
	}
}

func TestProcessFillsEmptyEntryID(t *testing.T) {
	svc, st := newService(t, &stubAnalyzer{})

	res, err := svc.Process(context.Background(), analyzer.JournalEntry{UserID: "user-1", Text: "no id", CreatedAt: testNow})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	id := res.Records[0].EntryID
	if id == "" {
		t.Fatal("entry id was not filled")
	}
	for _, rec := range res.Records {
		if rec.EntryID != id {
			t.Errorf("records carry mixed entry ids: %s vs %s", rec.EntryID, id)
		}
	}

	log, err := st.ListTransitions("user-1", 10)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(log) == 0 || log[0].EntryID != id {
		t.Errorf("log entry id = %q, want %q", log[0].EntryID, id)
	}
}

func TestEnsureCoresIsIdempotent(t *testing.T) {
	svc, _ := newService(t, &stubAnalyzer{})

	first, created, err := svc.EnsureCores("user-1", testNow)
	if err != nil {
		t.Fatalf("EnsureCores: %v", err)
	}
	if !created || len(first) != 6 {
		t.Fatalf("first call: created=%v cores=%d, want fresh set of 6", created, len(first))
	}

	second, created, err := svc.EnsureCores("user-1", testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("EnsureCores again: %v", err)
	}
	if created {
		t.Error("second call reported creation")
	}
	if len(second) != 6 || second[0].ID != first[0].ID {
		t.Errorf("second call returned different cores")
	}
}

func TestInsights(t *testing.T) {
	svc, _ := newService(t, &stubAnalyzer{})

	if _, err := svc.Insights("nobody"); err == nil {
		t.Error("Insights for an unknown user did not fail")
	}

	if _, err := svc.Process(context.Background(), entryAt("entry-1", "starting out", testNow)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	ins, err := svc.Insights("user-1")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if len(ins.Cores) != 6 {
		t.Errorf("got %d cores, want 6", len(ins.Cores))
	}
	if len(ins.Synergy) != 6 {
		t.Errorf("synergy has %d entries, want all 6 cores", len(ins.Synergy))
	}
	// All cores sit at the same depth, so every adjacency is a perfect match.
	for id, score := range ins.Synergy {
		if score != 1.0 {
			t.Errorf("synergy[%s] = %.2f, want 1.0", id, score)
		}
	}
	if len(ins.Suggestions) == 0 || len(ins.Suggestions) > 3 {
		t.Errorf("got %d suggestions, want 1..3", len(ins.Suggestions))
	}
}

func TestProcessSerializesPerUser(t *testing.T) {
	an := &stubAnalyzer{}
	svc, st := newService(t, an)

	const entries = 8
	var wg sync.WaitGroup
	errs := make(chan error, entries)
	for i := 0; i < entries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Process(context.Background(), entryAt(
				fmt.Sprintf("entry-%d", i), "racing", testNow.Add(time.Duration(i)*time.Minute)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	}

	cores, err := st.GetCores("user-1")
	if err != nil {
		t.Fatalf("GetCores: %v", err)
	}
	for _, c := range cores {
		if c.EntriesAtDepth != entries {
			t.Errorf("%s: dwell = %d, want %d; concurrent entries lost updates", c.ID, c.EntriesAtDepth, entries)
		}
	}
	if an.calls != entries {
		t.Errorf("analyzer called %d times, want %d", an.calls, entries)
	}
}
