// Package queue persists journal entries whose analysis could not complete,
// typically because the device was offline or the model endpoint was down.
// Entry text is encrypted at rest; only routing columns (ids, schedule,
// status) are stored in the clear.
package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/analyzer"
	"github.com/innerbloomapp/innerbloom/go-engine/internal/cipher"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS pending_entries (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	entry_id        TEXT NOT NULL,
	body            TEXT NOT NULL,
	attempts        INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	created_at      TEXT NOT NULL,
	UNIQUE (user_id, entry_id)
);

CREATE INDEX IF NOT EXISTS idx_pending_entries_due
	ON pending_entries(status, next_attempt_at);
`

// #endregion schema

// #region types

const (
	statusPending = "pending"
	statusDone    = "done"
	statusDead    = "dead"
)

// PendingEntry is one queued journal entry waiting for another analysis
// attempt. Attempts counts failures so far; NextAttemptAt is the earliest
// time the dispatcher may try again.
type PendingEntry struct {
	ID            string
	Entry         analyzer.JournalEntry
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}

// Counts summarizes the queue by status.
type Counts struct {
	Pending int
	Done    int
	Dead    int
}

// #endregion types

// #region queue

// Queue stores pending entries in SQLite. The entry body (everything the
// user wrote) is sealed with the cipher before it touches the database.
type Queue struct {
	db     *sql.DB
	cipher *cipher.Cipher
}

// NewQueue creates the pending_entries table if needed and returns a queue
// sharing the given database handle.
func NewQueue(db *sql.DB, c *cipher.Cipher) (*Queue, error) {
	q := &Queue{db: db, cipher: c}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("queue migrate: %w", err)
	}
	return q, nil
}

// DB exposes the underlying handle for tooling.
func (q *Queue) DB() *sql.DB {
	return q.db
}

// #endregion queue

// #region enqueue

// Enqueue stores a journal entry for later analysis, due immediately.
// Enqueueing the same entry twice is a no-op, so a caller that retries after
// a crash cannot double-queue the same piece of writing.
func (q *Queue) Enqueue(entry analyzer.JournalEntry, now time.Time) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("enqueue entry %s: %w", entry.ID, err)
	}
	sealed, err := q.cipher.Encrypt(string(body))
	if err != nil {
		return fmt.Errorf("enqueue entry %s: %w", entry.ID, err)
	}
	_, err = q.db.Exec(`
		INSERT INTO pending_entries (id, user_id, entry_id, body, attempts, next_attempt_at, status, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(user_id, entry_id) DO NOTHING`,
		uuid.New().String(),
		entry.UserID,
		entry.ID,
		sealed,
		now.UTC().UnixNano(),
		statusPending,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("enqueue entry %s: %w", entry.ID, err)
	}
	return nil
}

// #endregion enqueue

// #region due

// Due returns pending entries whose next attempt time has arrived, oldest
// first. An entry is held back while an older pending entry of the same user
// is still waiting out its backoff, so a user's entries always replay in the
// order they were written. A limit <= 0 returns all due entries.
func (q *Queue) Due(now time.Time, limit int) ([]PendingEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite reads LIMIT -1 as unlimited
	}
	cutoff := now.UTC().UnixNano()
	rows, err := q.db.Query(`
		SELECT p.id, p.body, p.attempts, p.next_attempt_at, p.created_at
		FROM pending_entries p
		WHERE p.status = ? AND p.next_attempt_at <= ?
		AND NOT EXISTS (
			SELECT 1 FROM pending_entries older
			WHERE older.user_id = p.user_id
			AND older.status = ?
			AND older.rowid < p.rowid
			AND older.next_attempt_at > ?
		)
		ORDER BY p.rowid
		LIMIT ?`,
		statusPending, cutoff, statusPending, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("due entries: %w", err)
	}
	defer rows.Close()

	var out []PendingEntry
	for rows.Next() {
		var (
			pe            PendingEntry
			sealed        string
			nextAttemptAt int64
			createdAt     string
		)
		if err := rows.Scan(&pe.ID, &sealed, &pe.Attempts, &nextAttemptAt, &createdAt); err != nil {
			return nil, fmt.Errorf("due entries: %w", err)
		}
		body, err := q.cipher.Decrypt(sealed)
		if err != nil {
			return nil, fmt.Errorf("decode pending entry %s: %w", pe.ID, err)
		}
		if err := json.Unmarshal([]byte(body), &pe.Entry); err != nil {
			return nil, fmt.Errorf("decode pending entry %s: %w", pe.ID, err)
		}
		pe.NextAttemptAt = time.Unix(0, nextAttemptAt).UTC()
		pe.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("decode pending entry %s: %w", pe.ID, err)
		}
		out = append(out, pe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("due entries: %w", err)
	}
	return out, nil
}

// #endregion due

// #region bookkeeping

// MarkDone records a successful analysis. The row stays behind as an audit
// trail; Due will never return it again.
func (q *Queue) MarkDone(id string) error {
	if _, err := q.db.Exec(
		`UPDATE pending_entries SET status = ? WHERE id = ?`,
		statusDone, id,
	); err != nil {
		return fmt.Errorf("mark done %s: %w", id, err)
	}
	return nil
}

// Reschedule records a failed attempt and sets the next try time.
func (q *Queue) Reschedule(id string, nextAttempt time.Time) error {
	if _, err := q.db.Exec(
		`UPDATE pending_entries SET attempts = attempts + 1, next_attempt_at = ? WHERE id = ?`,
		nextAttempt.UTC().UnixNano(), id,
	); err != nil {
		return fmt.Errorf("reschedule %s: %w", id, err)
	}
	return nil
}

// MarkDead records a final failed attempt and retires the entry. Dead
// entries are kept for inspection but never retried.
func (q *Queue) MarkDead(id string) error {
	if _, err := q.db.Exec(
		`UPDATE pending_entries SET status = ?, attempts = attempts + 1 WHERE id = ?`,
		statusDead, id,
	); err != nil {
		return fmt.Errorf("mark dead %s: %w", id, err)
	}
	return nil
}

// Stats counts entries by status.
func (q *Queue) Stats() (Counts, error) {
	rows, err := q.db.Query(`SELECT status, COUNT(*) FROM pending_entries GROUP BY status`)
	if err != nil {
		return Counts{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("queue stats: %w", err)
		}
		switch status {
		case statusPending:
			c.Pending = n
		case statusDone:
			c.Done = n
		case statusDead:
			c.Dead = n
		}
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("queue stats: %w", err)
	}
	return c, nil
}

// #endregion bookkeeping
