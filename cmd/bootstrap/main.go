package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/store"
)

// #region main

// bootstrap creates a user's initial core set without starting the full
// controller. Running it twice is harmless.
func main() {
	dbPath := flag.String("db", "innerbloom.db", "path to innerbloom.db")
	user := flag.String("user", "", "user to bootstrap")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: bootstrap --user id [--db path/to/innerbloom.db]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	existing, err := st.GetCores(*user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load cores: %v\n", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		fmt.Printf("User %s already has %d cores; nothing to do.\n", *user, len(existing))
		return
	}

	cores := core.InitialCores(core.DefaultRegistry(), time.Now().UTC())
	if err := st.CreateInitialCores(*user, cores); err != nil {
		fmt.Fprintf(os.Stderr, "create cores: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %d cores for %s:\n", len(cores), *user)
	for _, c := range cores {
		fmt.Printf("  %-14s %s, level %.2f\n", c.ID, c.Depth, c.CurrentLevel)
	}
}

// #endregion main
