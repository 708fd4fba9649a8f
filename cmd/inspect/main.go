package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/store"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/synergy"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to innerbloom.db")
	user := flag.String("user", "", "user to inspect")
	last := flag.Int("last", 30, "show N most recent decisions")
	movesOnly := flag.Bool("moves", false, "hide stays in the decision log")
	jsonOut := flag.Bool("json", false, "output as JSON instead of tables")
	flag.Parse()

	if *dbPath == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/innerbloom.db --user id [--last N] [--moves] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := run(st, *user, *last, *movesOnly, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region rows

type coreRow struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Depth          string   `json:"depth"`
	Level          float64  `json:"level"`
	EntriesAtDepth int      `json:"entries_at_depth"`
	Trend          string   `json:"trend"`
	LastTransition string   `json:"last_transition,omitempty"`
	Synergy        *float64 `json:"synergy,omitempty"`
}

type decisionRow struct {
	CreatedAt string `json:"created_at"`
	EntryID   string `json:"entry_id"`
	CoreID    string `json:"core_id"`
	Action    string `json:"action"`
	FromDepth string `json:"from_depth"`
	ToDepth   string `json:"to_depth"`
	Reason    string `json:"reason,omitempty"`
}

type output struct {
	UserID    string        `json:"user_id"`
	Cores     []coreRow     `json:"cores"`
	Decisions []decisionRow `json:"decisions"`
}

// #endregion rows

// #region run

func run(st *store.Store, userID string, last int, movesOnly, jsonOut bool) error {
	cores, err := st.GetCores(userID)
	if err != nil {
		return err
	}
	if len(cores) == 0 {
		return fmt.Errorf("no cores for user %s", userID)
	}

	scores := synergy.Scores(core.DefaultRegistry(), cores)

	coreRows := make([]coreRow, len(cores))
	for i, c := range cores {
		cr := coreRow{
			ID:             c.ID,
			Name:           c.Name,
			Depth:          c.Depth.String(),
			Level:          c.CurrentLevel,
			EntriesAtDepth: c.EntriesAtDepth,
			Trend:          string(c.Trend),
		}
		if c.LastTransition != nil {
			cr.LastTransition = c.LastTransition.Format("2006-01-02T15:04:05Z")
		}
		if v, ok := scores[c.ID]; ok {
			s := v
			cr.Synergy = &s
		}
		coreRows[i] = cr
	}

	transitions, err := st.ListTransitions(userID, last)
	if err != nil {
		return err
	}

	// Store returns newest first; reverse for chronological reading.
	decisionRows := make([]decisionRow, 0, len(transitions))
	for i := len(transitions) - 1; i >= 0; i-- {
		tr := transitions[i]
		if movesOnly && tr.Action == evolve.ActionStay {
			continue
		}
		decisionRows = append(decisionRows, decisionRow{
			CreatedAt: tr.CreatedAt.Format("2006-01-02T15:04:05Z"),
			EntryID:   tr.EntryID,
			CoreID:    tr.CoreID,
			Action:    tr.Action,
			FromDepth: tr.FromDepth,
			ToDepth:   tr.ToDepth,
			Reason:    tr.Reason,
		})
	}

	out := output{UserID: userID, Cores: coreRows, Decisions: decisionRows}
	if jsonOut {
		return printJSON(out)
	}
	printTables(out)
	return nil
}

// #endregion run

// #region output

func printTables(out output) {
	fmt.Printf("Cores for %s:\n", out.UserID)
	fmt.Printf("%-14s  %-13s  %7s  %6s  %-10s  %7s  %s\n",
		"Core", "Depth", "Level", "Dwell", "Trend", "Synergy", "Last Transition")
	fmt.Printf("%-14s+-%-13s+-%7s+-%6s+-%-10s+-%7s+-%s\n",
		"--------------", "-------------", "-------", "------", "----------", "-------", "--------------------")

	for _, r := range out.Cores {
		syn := "—"
		if r.Synergy != nil {
			syn = fmt.Sprintf("%.2f", *r.Synergy)
		}
		lastT := "—"
		if r.LastTransition != "" {
			lastT = r.LastTransition
		}
		fmt.Printf("%-14s  %-13s  %7.3f  %6d  %-10s  %7s  %s\n",
			r.ID, r.Depth, r.Level, r.EntriesAtDepth, r.Trend, syn, lastT)
	}

	if len(out.Decisions) == 0 {
		fmt.Println("\nNo decisions to show.")
		return
	}

	fmt.Println("\nRecent decisions (oldest first):")
	fmt.Printf("%-20s  %-12s  %-14s  %-8s  %-26s  %s\n",
		"Time", "Entry", "Core", "Action", "Depth", "Reason")
	fmt.Printf("%-20s+-%-12s+-%-14s+-%-8s+-%-26s+-%s\n",
		"--------------------", "------------", "--------------", "--------", "--------------------------", "--------")

	for _, d := range out.Decisions {
		depth := d.ToDepth
		if d.FromDepth != d.ToDepth {
			depth = fmt.Sprintf("%s -> %s", d.FromDepth, d.ToDepth)
		}
		fmt.Printf("%-20s  %-12s  %-14s  %-8s  %-26s  %s\n",
			d.CreatedAt, shortID(d.EntryID), d.CoreID, d.Action, depth, d.Reason)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output
