package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS cores (
	user_id             TEXT NOT NULL,
	core_id             TEXT NOT NULL,
	name                TEXT NOT NULL,
	description         TEXT NOT NULL,
	color               TEXT NOT NULL,
	icon                TEXT NOT NULL,
	current_level       REAL NOT NULL,
	previous_level      REAL NOT NULL,
	depth               TEXT NOT NULL,
	entries_at_depth    INTEGER NOT NULL,
	last_transition     TEXT,
	trend               TEXT NOT NULL,
	transition_signals  TEXT,
	supporting_evidence TEXT,
	last_updated        TEXT NOT NULL,
	PRIMARY KEY (user_id, core_id)
);

CREATE TABLE IF NOT EXISTS transition_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     TEXT NOT NULL,
	core_id     TEXT NOT NULL,
	entry_id    TEXT NOT NULL,
	action      TEXT NOT NULL,
	from_depth  TEXT NOT NULL,
	to_depth    TEXT NOT NULL,
	reason      TEXT,
	signal      TEXT,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transition_log_user
	ON transition_log(user_id, created_at);
`

// #endregion schema

// #region store-struct
// Store persists per-user cores and their transition history in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// The sqlite driver allows a single writer; one pooled connection keeps
	// concurrent queue-drain workers from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already-open database handle. The caller owns the
// handle and is responsible for schema setup and closing it.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. queue).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region get-cores
// GetCores loads a user's cores in the order they were first created, which
// is registry order. A user with no rows yields an empty slice, no error.
func (s *Store) GetCores(userID string) ([]core.EmotionalCore, error) {
	rows, err := s.db.Query(
		`SELECT core_id, name, description, color, icon,
		        current_level, previous_level, depth, entries_at_depth,
		        last_transition, trend, transition_signals, supporting_evidence, last_updated
		 FROM cores WHERE user_id = ? ORDER BY rowid`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cores: %w", err)
	}
	defer rows.Close()

	var cores []core.EmotionalCore
	for rows.Next() {
		c, err := scanCore(rows)
		if err != nil {
			return nil, err
		}
		cores = append(cores, c)
	}
	return cores, rows.Err()
}

func scanCore(rows *sql.Rows) (core.EmotionalCore, error) {
	var c core.EmotionalCore
	var depthStr, trendStr, updatedStr string
	var lastTransition, signalsJSON, evidenceJSON sql.NullString

	err := rows.Scan(
		&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon,
		&c.CurrentLevel, &c.PreviousLevel, &depthStr, &c.EntriesAtDepth,
		&lastTransition, &trendStr, &signalsJSON, &evidenceJSON, &updatedStr,
	)
	if err != nil {
		return core.EmotionalCore{}, fmt.Errorf("scan core: %w", err)
	}

	depth, ok := core.ParseDepth(depthStr)
	if !ok {
		return core.EmotionalCore{}, fmt.Errorf("core %s: unknown depth %q", c.ID, depthStr)
	}
	c.Depth = depth
	c.Trend = core.Trend(trendStr)

	if lastTransition.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastTransition.String)
		if err != nil {
			return core.EmotionalCore{}, fmt.Errorf("core %s: parse last_transition: %w", c.ID, err)
		}
		c.LastTransition = &t
	}
	if signalsJSON.Valid {
		if err := json.Unmarshal([]byte(signalsJSON.String), &c.TransitionSignals); err != nil {
			return core.EmotionalCore{}, fmt.Errorf("core %s: unmarshal signals: %w", c.ID, err)
		}
	}
	if evidenceJSON.Valid {
		if err := json.Unmarshal([]byte(evidenceJSON.String), &c.SupportingEvidence); err != nil {
			return core.EmotionalCore{}, fmt.Errorf("core %s: unmarshal evidence: %w", c.ID, err)
		}
	}
	c.LastUpdated, _ = time.Parse(time.RFC3339Nano, updatedStr)

	return c, nil
}

// #endregion get-cores

// #region create-initial
// CreateInitialCores inserts a user's first core rows in one transaction.
// Insert order becomes the order GetCores returns forever after.
func (s *Store) CreateInitialCores(userID string, cores []core.EmotionalCore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range cores {
		if err := upsertCore(tx, userID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// #endregion create-initial

// #region save-cores
// SaveCores writes an updated snapshot atomically: either every core's new
// state lands or none does.
func (s *Store) SaveCores(userID string, cores []core.EmotionalCore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range cores {
		if err := upsertCore(tx, userID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertCore(tx *sql.Tx, userID string, c core.EmotionalCore) error {
	signalsJSON, err := marshalStrings(c.TransitionSignals)
	if err != nil {
		return fmt.Errorf("marshal signals for %s: %w", c.ID, err)
	}
	evidenceJSON, err := marshalStrings(c.SupportingEvidence)
	if err != nil {
		return fmt.Errorf("marshal evidence for %s: %w", c.ID, err)
	}

	var transitionPtr interface{}
	if c.LastTransition != nil {
		transitionPtr = c.LastTransition.Format(time.RFC3339Nano)
	}

	_, err = tx.Exec(
		`INSERT INTO cores (user_id, core_id, name, description, color, icon,
		                    current_level, previous_level, depth, entries_at_depth,
		                    last_transition, trend, transition_signals, supporting_evidence, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, core_id) DO UPDATE SET
		 	current_level = excluded.current_level,
		 	previous_level = excluded.previous_level,
		 	depth = excluded.depth,
		 	entries_at_depth = excluded.entries_at_depth,
		 	last_transition = excluded.last_transition,
		 	trend = excluded.trend,
		 	transition_signals = excluded.transition_signals,
		 	supporting_evidence = excluded.supporting_evidence,
		 	last_updated = excluded.last_updated`,
		userID, c.ID, c.Name, c.Description, c.Color, c.Icon,
		c.CurrentLevel, c.PreviousLevel, c.Depth.String(), c.EntriesAtDepth,
		transitionPtr, string(c.Trend), signalsJSON, evidenceJSON,
		c.LastUpdated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert core %s: %w", c.ID, err)
	}
	return nil
}

// #endregion save-cores

// #region helpers
func marshalStrings(items []string) (interface{}, error) {
	if len(items) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
