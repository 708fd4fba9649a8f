package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/replay"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to innerbloom.db")
	user := flag.String("user", "", "user whose history to export")
	last := flag.Int("last", 0, "export only the last N entries, seeding the start state by replaying the earlier ones (0 = all)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *user == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/innerbloom.db --user id --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *user, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, userID string, last int, outPath string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	history, err := st.EntryHistory(userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("no transitions logged for user %s", userID)
	}

	entries, expected := fixtureFromHistory(history)

	fixture := replay.Fixture{
		Description: fmt.Sprintf("Exported history: %d entries for user %s", len(entries), userID),
		Entries:     entries,
	}

	if last > 0 && last < len(entries) {
		// Seed the start state by replaying everything before the tail, so
		// the exported fixture stays valid on its own.
		cut := len(entries) - last
		start, err := seedState(entries[:cut], expected)
		if err != nil {
			return err
		}
		fixture.Description = fmt.Sprintf("Exported history: last %d of %d entries for user %s", last, len(entries), userID)
		fixture.StartCores = start
		fixture.Entries = entries[cut:]
	}

	tail := make(map[string]bool, len(fixture.Entries))
	for _, fe := range fixture.Entries {
		tail[fe.EntryID] = true
	}
	for _, exp := range expected {
		if tail[exp.EntryID] {
			fixture.ExpectedResults = append(fixture.ExpectedResults, exp)
		}
	}

	if err := replay.SaveFixture(outPath, &fixture); err != nil {
		return err
	}
	fmt.Printf("Wrote fixture to %s (%d entries, %d expected results)\n",
		outPath, len(fixture.Entries), len(fixture.ExpectedResults))
	return nil
}

// fixtureFromHistory rebuilds replay inputs from the transition log. The log
// holds every decision since the user's cores were created, so a full replay
// starts from the initial set.
func fixtureFromHistory(history []store.EntryDecisions) ([]replay.FixtureEntry, []replay.FixtureExpectedResult) {
	entries := make([]replay.FixtureEntry, 0, len(history))
	var expected []replay.FixtureExpectedResult
	for _, h := range history {
		fe := replay.FixtureEntry{
			EntryID: h.EntryID,
			Signals: make(map[string]replay.FixtureSignal),
		}
		for _, d := range h.Decisions {
			if d.Signal != nil {
				fe.Signals[d.CoreID] = replay.SignalToFixture(*d.Signal)
			}
			expected = append(expected, replay.FixtureExpectedResult{
				EntryID: h.EntryID,
				CoreID:  d.CoreID,
				Action:  d.Action,
			})
		}
		entries = append(entries, fe)
	}
	return entries, expected
}

// seedState replays the head entries from the initial cores and returns the
// resulting state as fixture cores. A divergence between the replayed head
// and the logged decisions means the ladder's constants have drifted since
// the history was written; the export still proceeds, with a warning.
func seedState(head []replay.FixtureEntry, expected []replay.FixtureExpectedResult) ([]replay.FixtureCore, error) {
	reg := core.DefaultRegistry()
	base := time.Now().UTC()

	res, err := replay.NewHarness(evolve.NewEngine(reg)).Replay(core.InitialCores(reg, base), head, base)
	if err != nil {
		return nil, fmt.Errorf("replay head: %w", err)
	}

	covered := make(map[string]bool, len(head))
	for _, fe := range head {
		covered[fe.EntryID] = true
	}
	var headExpected []replay.FixtureExpectedResult
	for _, exp := range expected {
		if covered[exp.EntryID] {
			headExpected = append(headExpected, exp)
		}
	}
	if n := len(replay.Verify(res, headExpected)); n > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d head decisions diverge from the log; the seeded start state may not match the live one\n", n)
	}

	cores := make([]replay.FixtureCore, len(res.FinalCores))
	for i, c := range res.FinalCores {
		cores[i] = replay.FixtureCore{
			ID:             c.ID,
			Depth:          c.Depth.String(),
			CurrentLevel:   c.CurrentLevel,
			PreviousLevel:  c.PreviousLevel,
			EntriesAtDepth: c.EntriesAtDepth,
		}
	}
	return cores, nil
}

// #endregion export
