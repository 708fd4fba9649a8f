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
	dbPath := flag.String("db", "", "path to innerbloom.db (DB mode)")
	user := flag.String("user", "", "user whose history to replay (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	fixtureMode := *fixturePath != ""
	dbMode := *dbPath != ""
	if fixtureMode == dbMode {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/innerbloom.db --user id")
		os.Exit(2)
	}

	var exitCode int
	if fixtureMode {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		if *user == "" {
			fmt.Fprintln(os.Stderr, "--user is required with --db")
			os.Exit(2)
		}
		exitCode = runDBMode(*dbPath, *user)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	reg := core.DefaultRegistry()
	base := time.Now().UTC()
	start, err := f.StartState(reg, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start state: %v\n", err)
		return 2
	}

	res, err := replay.NewHarness(evolve.NewEngine(reg)).Replay(start, f.Entries, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	if len(f.ExpectedResults) == 0 {
		fmt.Fprintln(os.Stderr, "fixture has no expected_results; printing outcome only")
		printOutcome(res)
		return 0
	}
	return printComparison(res, f.ExpectedResults)
}

// #endregion fixture-mode

// #region db-mode

func runDBMode(dbPath, userID string) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	history, err := st.EntryHistory(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load history: %v\n", err)
		return 2
	}
	if len(history) == 0 {
		fmt.Fprintf(os.Stderr, "no transitions logged for user %s\n", userID)
		return 2
	}

	entries, expected := fixtureFromHistory(history)

	reg := core.DefaultRegistry()
	base := time.Now().UTC()
	res, err := replay.NewHarness(evolve.NewEngine(reg)).Replay(core.InitialCores(reg, base), entries, base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(res, expected)
}

// fixtureFromHistory rebuilds replay inputs from the transition log. The log
// holds every decision since the user's cores were created, so the replay
// always starts from the initial set.
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

// #endregion db-mode

// #region output

// printComparison walks the expectations in order, prints one row per
// decision, and returns the exit code: 0 clean, 1 on any divergence.
func printComparison(res *replay.Result, expected []replay.FixtureExpectedResult) int {
	byEntry := make(map[string]*replay.Step, len(res.Steps))
	for i := range res.Steps {
		byEntry[res.Steps[i].EntryID] = &res.Steps[i]
	}

	fmt.Printf("%-14s| %-14s| %-10s| %-20s| %s\n", "Entry", "Core", "Expected", "Replayed", "Match")
	fmt.Printf("%-14s+%-15s+%-11s+%-21s+%s\n",
		"--------------", "---------------", "-----------", "---------------------", "------")

	matches := 0
	for _, exp := range expected {
		got := "entry not replayed"
		if step, ok := byEntry[exp.EntryID]; ok {
			got = "core not evaluated"
			for _, rec := range step.Records {
				if rec.Core.ID == exp.CoreID {
					got = rec.Action()
					break
				}
			}
		}

		match := "DIFF"
		if got == exp.Action {
			match = "OK"
			matches++
		}
		fmt.Printf("%-14s| %-14s| %-10s| %-20s| %s\n", shortID(exp.EntryID), exp.CoreID, exp.Action, got, match)
	}

	diverge := len(expected) - matches
	printSummaryLine(res)
	fmt.Printf("Compared: %d decisions, %d match, %d diverge\n", len(expected), matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

func printOutcome(res *replay.Result) {
	printSummaryLine(res)
	fmt.Println("\nFinal cores:")
	for _, c := range res.FinalCores {
		fmt.Printf("  %-14s %-13s level %.3f  dwell %d\n", c.ID, c.Depth, c.CurrentLevel, c.EntriesAtDepth)
	}
}

func printSummaryLine(res *replay.Result) {
	sum := replay.Summarize(res)
	fmt.Printf("\nSummary: %d entries, %d advances, %d retreats, %d stays", sum.Entries, sum.Advances, sum.Retreats, sum.Stays)
	if sum.ChecksFailed > 0 {
		fmt.Printf(", %d FAILED CHECKS", sum.ChecksFailed)
	}
	fmt.Println()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output
