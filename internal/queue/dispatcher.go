package queue

// #region imports
import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/analyzer"
)

// #endregion imports

// #region config

// ErrDrainInProgress is returned when Drain is called while a previous drain
// is still running.
var ErrDrainInProgress = errors.New("drain already in progress")

// backoffSchedule spaces out retries for a failing entry. Attempts beyond
// the schedule reuse the last wait.
var backoffSchedule = []time.Duration{
	time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// backoffFor returns the wait before retry number attempts (1-based).
func backoffFor(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > len(backoffSchedule) {
		return backoffSchedule[len(backoffSchedule)-1]
	}
	return backoffSchedule[attempts-1]
}

// Config tunes the dispatcher.
type Config struct {
	// MaxAttempts is how many times an entry is tried before it is retired
	// as dead.
	MaxAttempts int

	// BatchSize caps how many entries one drain pulls from the queue.
	BatchSize int
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BatchSize:   50,
	}
}

// #endregion config

// #region dispatcher

// ProcessFunc runs the full analysis pipeline for one queued entry.
type ProcessFunc func(ctx context.Context, entry analyzer.JournalEntry) error

// Stats reports what one drain did.
type Stats struct {
	Attempted   int
	Done        int
	Rescheduled int
	Dead        int
}

// Dispatcher replays queued entries through a ProcessFunc. Drains run one
// worker per user so different users proceed in parallel while a single
// user's entries replay strictly in order, with at most one in flight.
type Dispatcher struct {
	queue   *Queue
	process ProcessFunc
	log     *zap.Logger
	config  Config

	mu       sync.Mutex
	draining bool
}

// NewDispatcher wires a dispatcher to a queue. Zero config fields fall back
// to DefaultConfig; a nil logger is replaced with a no-op one.
func NewDispatcher(q *Queue, process ProcessFunc, log *zap.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		queue:   q,
		process: process,
		log:     log,
		config:  cfg,
	}
}

// #endregion dispatcher

// #region drain

// Drain processes every entry that is due at the given time. Only one drain
// runs at a time; a second concurrent call returns ErrDrainInProgress so
// overlapping timers cannot double-process an entry.
func (d *Dispatcher) Drain(ctx context.Context, now time.Time) (Stats, error) {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return Stats{}, ErrDrainInProgress
	}
	d.draining = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.draining = false
		d.mu.Unlock()
	}()

	due, err := d.queue.Due(now, d.config.BatchSize)
	if err != nil {
		return Stats{}, err
	}
	if len(due) == 0 {
		return Stats{}, nil
	}

	byUser := make(map[string][]PendingEntry)
	for _, pe := range due {
		byUser[pe.Entry.UserID] = append(byUser[pe.Entry.UserID], pe)
	}

	var (
		statsMu sync.Mutex
		stats   Stats
	)
	tally := func(f func(*Stats)) {
		statsMu.Lock()
		f(&stats)
		statsMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for userID, entries := range byUser {
		userID, entries := userID, entries
		g.Go(func() error {
			for _, pe := range entries {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				tally(func(s *Stats) { s.Attempted++ })

				if err := d.process(gctx, pe.Entry); err != nil {
					attempts := pe.Attempts + 1
					d.log.Warn("queued entry failed",
						zap.String("user", userID),
						zap.String("entry", pe.Entry.ID),
						zap.Int("attempts", attempts),
						zap.Error(err))

					if attempts >= d.config.MaxAttempts {
						if err := d.queue.MarkDead(pe.ID); err != nil {
							return err
						}
						d.log.Error("giving up on queued entry",
							zap.String("user", userID),
							zap.String("entry", pe.Entry.ID),
							zap.Int("attempts", attempts))
						tally(func(s *Stats) { s.Dead++ })
						// A dead head no longer holds the line.
						continue
					}

					if err := d.queue.Reschedule(pe.ID, now.Add(backoffFor(attempts))); err != nil {
						return err
					}
					tally(func(s *Stats) { s.Rescheduled++ })
					// The rest of this user's line waits behind the
					// failed entry so replays stay in order.
					return nil
				}

				if err := d.queue.MarkDone(pe.ID); err != nil {
					return err
				}
				tally(func(s *Stats) { s.Done++ })
			}
			return nil
		})
	}
	err = g.Wait()
	return stats, err
}

// #endregion drain
