package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/analyzer"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/cipher"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/config"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/journal"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/logging"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/queue"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/store"
)

// #region main
func main() {
	user := flag.String("user", "local", "user whose journal this session writes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		logger.Fatal("open store", zap.String("db", cfg.DBPath), zap.Error(err))
	}
	defer st.Close()

	ciph, err := cipher.Load(cfg.KeyFile)
	if err != nil {
		logger.Fatal("load cipher key", zap.String("key_file", cfg.KeyFile), zap.Error(err))
	}

	// The queue shares the store's database file.
	q, err := queue.NewQueue(st.DB(), ciph)
	if err != nil {
		logger.Fatal("open queue", zap.Error(err))
	}

	an := buildAnalyzer(cfg)
	svc := journal.NewService(evolve.NewEngine(core.DefaultRegistry()), an, st, logger)

	dispatcher := queue.NewDispatcher(q, func(ctx context.Context, entry analyzer.JournalEntry) error {
		_, err := svc.Process(ctx, entry)
		return err
	}, logger, queue.Config{
		MaxAttempts: cfg.QueueMaxAttempts,
		BatchSize:   cfg.QueueBatch,
	})

	if _, created, err := svc.EnsureCores(*user, time.Now().UTC()); err != nil {
		logger.Fatal("ensure cores", zap.String("user_id", *user), zap.Error(err))
	} else if created {
		fmt.Printf("Welcome, %s. Your six cores start dormant; they deepen as you write.\n", *user)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go drainLoop(ctx, dispatcher, cfg.DrainInterval, logger)

	fmt.Println("Innerbloom engine ready.")
	fmt.Printf("  DB: %s | Analyzer: %s | User: %s\n", cfg.DBPath, cfg.Analyzer, *user)
	fmt.Println("Write a journal entry (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}

		entry := analyzer.JournalEntry{
			ID:        uuid.New().String(),
			UserID:    *user,
			Text:      text,
			CreatedAt: time.Now().UTC(),
		}

		procCtx, procCancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := svc.Process(procCtx, entry)
		procCancel()

		if err != nil {
			if errors.Is(err, journal.ErrAnalysisFailed) {
				if qerr := q.Enqueue(entry, time.Now().UTC()); qerr != nil {
					logger.Error("enqueue after analysis failure", zap.String("entry_id", entry.ID), zap.Error(qerr))
					fmt.Println("Analysis is unavailable and the entry could not be queued. It was not saved.")
				} else {
					fmt.Println("Analysis is unavailable right now. The entry is queued and will be retried.")
				}
				continue
			}
			logger.Error("process entry", zap.String("entry_id", entry.ID), zap.Error(err))
			fmt.Println("Something went wrong saving that entry.")
			continue
		}

		printOutcome(res)
		printInsights(svc, *user)
	}
}

// #endregion main

// #region wiring

// buildAnalyzer picks the signal source configured by INNERBLOOM_ANALYZER.
func buildAnalyzer(cfg *config.Config) analyzer.Analyzer {
	if cfg.Analyzer == config.AnalyzerOpenAI {
		client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
		limiter := analyzer.NewAdaptiveLimiter(2, 1, 10, 0.2, 0.5)
		return analyzer.NewOpenAIAnalyzer(&client, cfg.Model, limiter)
	}
	return analyzer.NewLexiconAnalyzer()
}

// drainLoop retries queued entries on a fixed interval until ctx is canceled.
func drainLoop(ctx context.Context, d *queue.Dispatcher, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := d.Drain(ctx, time.Now().UTC())
			if err != nil {
				if !errors.Is(err, queue.ErrDrainInProgress) && !errors.Is(err, context.Canceled) {
					logger.Warn("queue drain", zap.Error(err))
				}
				continue
			}
			if stats.Attempted > 0 {
				logger.Info("queue drained",
					zap.Int("attempted", stats.Attempted),
					zap.Int("done", stats.Done),
					zap.Int("rescheduled", stats.Rescheduled),
					zap.Int("dead", stats.Dead),
				)
			}
		}
	}
}

// #endregion wiring

// #region output

func printOutcome(res *journal.ProcessResult) {
	moved := res.Moved()
	if len(moved) == 0 {
		fmt.Println("\nEntry saved. No cores changed depth.")
		return
	}
	fmt.Println("\nEntry saved.")
	for _, rec := range moved {
		arrow := "deepened"
		if rec.ToDepth < rec.FromDepth {
			arrow = "pulled back"
		}
		fmt.Printf("  %s %s: %s -> %s\n", rec.Core.Name, arrow, rec.FromDepth, rec.ToDepth)
		fmt.Printf("    (%s)\n", rec.Reason)
	}
}

func printInsights(svc *journal.Service, userID string) {
	ins, err := svc.Insights(userID)
	if err != nil {
		return
	}
	if len(ins.Synergy) > 0 {
		parts := make([]string, 0, len(ins.Cores))
		for _, c := range ins.Cores {
			if v, ok := ins.Synergy[c.ID]; ok {
				parts = append(parts, fmt.Sprintf("%s %.2f", c.ID, v))
			}
		}
		fmt.Printf("\nSynergy: %s\n", strings.Join(parts, " | "))
	}
	if len(ins.Suggestions) > 0 {
		fmt.Println("\nSuggestions:")
		for _, s := range ins.Suggestions {
			fmt.Printf("  ~ %s\n", s.Message)
		}
	}
	fmt.Println()
}

// #endregion output
