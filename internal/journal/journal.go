// Package journal is the composition root: it runs a written entry through
// analysis, core evolution, invariant checks, and persistence, and serves the
// read-side views built on the resulting core state.
package journal

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/analyzer"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/check"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/evolve"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/recommend"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/store"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/synergy"
)

// #endregion imports

// #region errors

// ErrAnalysisFailed wraps analyzer errors so callers can tell a transient
// analysis problem (queue the entry, try again later) from a real pipeline
// failure.
var ErrAnalysisFailed = errors.New("analysis failed")

// #endregion errors

// #region service

// Service coordinates one user's journal pipeline. Concurrent Process calls
// for the same user serialize on a per-user lock; the read-modify-write on
// the core snapshot is not safe to interleave.
type Service struct {
	engine   *evolve.Engine
	analyzer analyzer.Analyzer
	store    *store.Store
	checker  *check.Harness
	log      *zap.Logger

	userLocks sync.Map // user id -> *sync.Mutex
}

// NewService wires the pipeline together. A nil logger is replaced with a
// no-op one.
func NewService(engine *evolve.Engine, an analyzer.Analyzer, st *store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		engine:   engine,
		analyzer: an,
		store:    st,
		checker:  check.NewHarness(check.DefaultConfig()),
		log:      log,
	}
}

func (s *Service) lockUser(userID string) func() {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// #endregion service

// #region process

// ProcessResult is everything one entry produced: the per-core decisions,
// the post-entry core state in registry order, and the invariant check that
// cleared it for persistence.
type ProcessResult struct {
	Records []evolve.TransitionRecord
	Cores   []core.EmotionalCore
	Check   check.Result
}

// Moved returns just the records where a depth change fired.
func (r *ProcessResult) Moved() []evolve.TransitionRecord {
	var moved []evolve.TransitionRecord
	for _, rec := range r.Records {
		if rec.Transitioned {
			moved = append(moved, rec)
		}
	}
	return moved
}

// Process runs one journal entry through the full pipeline. First-time users
// get their initial cores created on the way in. An empty entry id is filled
// with a fresh one.
//
// Evolution timestamps follow the entry's CreatedAt when set, so an entry
// replayed from the queue hours later still lands at its write time.
//
// Nothing is persisted unless the invariant check passes; on an analyzer
// error the wrapped ErrAnalysisFailed is returned and the cores are left
// exactly as they were.
func (s *Service) Process(ctx context.Context, entry analyzer.JournalEntry) (*ProcessResult, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := entry.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	defer s.lockUser(entry.UserID)()

	cores, _, err := s.ensureCores(entry.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("process entry %s: %w", entry.ID, err)
	}

	signals, err := s.analyzer.Analyze(ctx, entry, cores)
	if err != nil {
		return nil, fmt.Errorf("%w for entry %s: %v", ErrAnalysisFailed, entry.ID, err)
	}
	s.log.Debug("entry analyzed",
		zap.String("user", entry.UserID),
		zap.String("entry", entry.ID),
		zap.Int("signals", len(signals)))

	records, err := s.engine.ProcessEntry(cores, signals, entry.ID, now)
	if err != nil {
		return nil, fmt.Errorf("process entry %s: %w", entry.ID, err)
	}

	res := s.checker.Run(cores, records)
	if !res.Passed {
		s.log.Error("evolution rejected, nothing persisted",
			zap.String("user", entry.UserID),
			zap.String("entry", entry.ID),
			zap.String("reason", res.Reason))
		return nil, fmt.Errorf("entry %s rejected: %s", entry.ID, res.Reason)
	}

	after := make([]core.EmotionalCore, len(records))
	for i, rec := range records {
		after[i] = rec.Core
	}
	if err := s.store.SaveCores(entry.UserID, after); err != nil {
		return nil, fmt.Errorf("process entry %s: %w", entry.ID, err)
	}

	moved := 0
	for _, rec := range records {
		from, to := rec.FromDepth, rec.ToDepth
		if !rec.Transitioned {
			from, to = rec.Core.Depth, rec.Core.Depth
		}
		logEntry := store.TransitionEntry{
			UserID:    entry.UserID,
			CoreID:    rec.Core.ID,
			EntryID:   entry.ID,
			Action:    rec.Action(),
			FromDepth: from.String(),
			ToDepth:   to.String(),
			Reason:    rec.Reason,
			CreatedAt: now,
		}
		if sig, ok := signals[rec.Core.ID]; ok {
			sigCopy := sig
			logEntry.Signal = &sigCopy
		}
		if err := s.store.LogTransition(logEntry); err != nil {
			return nil, fmt.Errorf("process entry %s: %w", entry.ID, err)
		}
		if rec.Transitioned {
			moved++
			s.log.Info("core transitioned",
				zap.String("user", entry.UserID),
				zap.String("core", rec.Core.ID),
				zap.String("action", rec.Action()),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
				zap.String("reason", rec.Reason))
		}
	}

	s.log.Info("entry processed",
		zap.String("user", entry.UserID),
		zap.String("entry", entry.ID),
		zap.Int("moved", moved))

	return &ProcessResult{Records: records, Cores: after, Check: res}, nil
}

// #endregion process

// #region ensure-cores

// EnsureCores returns the user's cores, creating the initial dormant set on
// first use. The second return reports whether creation happened.
func (s *Service) EnsureCores(userID string, now time.Time) ([]core.EmotionalCore, bool, error) {
	defer s.lockUser(userID)()
	return s.ensureCores(userID, now)
}

func (s *Service) ensureCores(userID string, now time.Time) ([]core.EmotionalCore, bool, error) {
	cores, err := s.store.GetCores(userID)
	if err != nil {
		return nil, false, err
	}
	if len(cores) > 0 {
		return cores, false, nil
	}

	cores = s.engine.InitialCores(now)
	if err := s.store.CreateInitialCores(userID, cores); err != nil {
		return nil, false, err
	}
	s.log.Info("initial cores created",
		zap.String("user", userID),
		zap.Int("cores", len(cores)))
	return cores, true, nil
}

// #endregion ensure-cores

// #region insights

// Insights is the read-side view of a user's cores: the state itself,
// pairwise synergy scores, and reflection suggestions.
type Insights struct {
	Cores       []core.EmotionalCore
	Synergy     map[string]float64
	Suggestions []recommend.Suggestion
}

// Insights builds the read-side view for a user. Unknown users are an error;
// cores are only created by processing an entry or an explicit bootstrap.
func (s *Service) Insights(userID string) (*Insights, error) {
	cores, err := s.store.GetCores(userID)
	if err != nil {
		return nil, fmt.Errorf("insights for %s: %w", userID, err)
	}
	if len(cores) == 0 {
		return nil, fmt.Errorf("insights for %s: no cores", userID)
	}
	reg := s.engine.Registry()
	return &Insights{
		Cores:       cores,
		Synergy:     synergy.Scores(reg, cores),
		Suggestions: recommend.Suggestions(reg, cores, recommend.DefaultLimit),
	}, nil
}

// #endregion insights
