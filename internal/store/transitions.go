package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// #region transition-entry
// TransitionEntry is a single row in the transition_log table: one evaluation
// decision for one core on one journal entry. Action is advance, retreat, or
// stay; Signal carries the resonance signal that drove the decision, nil when
// the entry said nothing about the core.
type TransitionEntry struct {
	UserID    string
	CoreID    string
	EntryID   string
	Action    string
	FromDepth string
	ToDepth   string
	Reason    string
	Signal    *core.ResonanceSignal
	CreatedAt time.Time
}

// #endregion transition-entry

// #region log-transition
// LogTransition appends one decision to the transition log.
func (s *Store) LogTransition(entry TransitionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var signal interface{}
	if entry.Signal != nil {
		data, err := json.Marshal(entry.Signal)
		if err != nil {
			return fmt.Errorf("log transition: %w", err)
		}
		signal = string(data)
	}

	_, err := s.db.Exec(
		`INSERT INTO transition_log (user_id, core_id, entry_id, action, from_depth, to_depth, reason, signal, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID,
		entry.CoreID,
		entry.EntryID,
		entry.Action,
		entry.FromDepth,
		entry.ToDepth,
		nullIfEmpty(entry.Reason),
		signal,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}

// #endregion log-transition

// #region list-transitions
// ListTransitions returns a user's most recent decisions, newest first.
func (s *Store) ListTransitions(userID string, limit int) ([]TransitionEntry, error) {
	rows, err := s.db.Query(
		`SELECT user_id, core_id, entry_id, action, from_depth, to_depth, reason, signal, created_at
		 FROM transition_log WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var entries []TransitionEntry
	for rows.Next() {
		var e TransitionEntry
		var reason, signal sql.NullString
		var createdStr string
		if err := rows.Scan(&e.UserID, &e.CoreID, &e.EntryID, &e.Action, &e.FromDepth, &e.ToDepth, &reason, &signal, &createdStr); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		if signal.Valid {
			var sig core.ResonanceSignal
			if err := json.Unmarshal([]byte(signal.String), &sig); err != nil {
				return nil, fmt.Errorf("transition %s/%s: bad signal: %w", e.EntryID, e.CoreID, err)
			}
			e.Signal = &sig
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-transitions

// #region entry-history
// EntryHistory returns a user's full decision log grouped by journal entry,
// oldest entry first, preserving per-entry core order. Fixture export rebuilds
// replay inputs from this.
func (s *Store) EntryHistory(userID string) ([]EntryDecisions, error) {
	rows, err := s.db.Query(
		`SELECT entry_id, core_id, action, from_depth, to_depth, reason, signal, created_at
		 FROM transition_log WHERE user_id = ? ORDER BY id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("entry history: %w", err)
	}
	defer rows.Close()

	var (
		history []EntryDecisions
		index   = map[string]int{}
	)
	for rows.Next() {
		var e TransitionEntry
		var reason, signal sql.NullString
		var createdStr string
		if err := rows.Scan(&e.EntryID, &e.CoreID, &e.Action, &e.FromDepth, &e.ToDepth, &reason, &signal, &createdStr); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.UserID = userID
		if reason.Valid {
			e.Reason = reason.String
		}
		if signal.Valid {
			var sig core.ResonanceSignal
			if err := json.Unmarshal([]byte(signal.String), &sig); err != nil {
				return nil, fmt.Errorf("transition %s/%s: bad signal: %w", e.EntryID, e.CoreID, err)
			}
			e.Signal = &sig
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

		i, ok := index[e.EntryID]
		if !ok {
			i = len(history)
			index[e.EntryID] = i
			history = append(history, EntryDecisions{EntryID: e.EntryID})
		}
		history[i].Decisions = append(history[i].Decisions, e)
	}
	return history, rows.Err()
}

// EntryDecisions groups the per-core decisions recorded for one journal entry.
type EntryDecisions struct {
	EntryID   string
	Decisions []TransitionEntry
}

// #endregion entry-history
