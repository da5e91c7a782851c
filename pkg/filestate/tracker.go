// Package filestate implements the persistent `{pending}` bookkeeping
// described in §4.9: which files have already been consumed for a given
// workflow + pattern-literal pair, so unedited files aren't reprocessed and
// edited files are.
package filestate

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("filestate:tracker")

// Tracker is backed by the shared sqlite store (pkg/store). Writes are
// serialized per (workflow_id, pattern_literal) with an in-process mutex —
// see DESIGN.md's Open Question #3: this deployment is single-process, so a
// mutex map is equivalent to row-level locking without SQLite BUSY retries.
type Tracker struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wraps an already-migrated *sql.DB (see pkg/store.Open).
func New(db *sql.DB) *Tracker {
	return &Tracker{db: db, locks: map[string]*sync.Mutex{}}
}

// ConsumedEntry is one file recorded as processed in a RecordConsumed batch.
type ConsumedEntry struct {
	Path          string
	ContentSHA256 string
	MarkedAt      time.Time
}

func (t *Tracker) lockFor(workflowID, patternLiteral string) *sync.Mutex {
	key := workflowID + "\x00" + patternLiteral
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.locks[key]
	if !ok {
		m = &sync.Mutex{}
		t.locks[key] = m
	}
	return m
}

// RecordConsumed batch-writes the files a step consumed for a `{pending}`
// pattern. Called once, at step end, so a step that fails mid-execution
// never partially marks its inputs as processed.
func (t *Tracker) RecordConsumed(workflowID, patternLiteral string, entries []ConsumedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	lock := t.lockFor(workflowID, patternLiteral)
	lock.Lock()
	defer lock.Unlock()

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("filestate: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO file_state (workflow_id, pattern_literal, path, content_sha256, marked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (workflow_id, pattern_literal, path)
		DO UPDATE SET content_sha256 = excluded.content_sha256, marked_at = excluded.marked_at
	`)
	if err != nil {
		return fmt.Errorf("filestate: preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(workflowID, patternLiteral, e.Path, e.ContentSHA256, e.MarkedAt); err != nil {
			return fmt.Errorf("filestate: recording %s: %w", e.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("filestate: committing: %w", err)
	}
	log.Printf("recorded %d consumed files for workflow=%s pattern=%q", len(entries), workflowID, patternLiteral)
	return nil
}

// IsProcessed reports whether path is already recorded processed for this
// workflow+pattern: true iff some row for this workflow+pattern has the
// same content hash (the hash branch is path-independent, per §3's
// FileStateRecord invariant, so a rename without a content edit still
// matches), OR the stored (path, marked_at) matches this exact path and
// mtime <= marked_at.
func (t *Tracker) IsProcessed(workflowID, patternLiteral, path, contentHash string, mtime time.Time) (bool, error) {
	var exists int
	err := t.db.QueryRow(`
		SELECT 1 FROM file_state
		WHERE workflow_id = ? AND pattern_literal = ? AND content_sha256 = ?
		LIMIT 1
	`, workflowID, patternLiteral, contentHash).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("filestate: checking %s: %w", path, err)
	}
	if err == nil {
		return true, nil
	}

	row := t.db.QueryRow(`
		SELECT marked_at FROM file_state
		WHERE workflow_id = ? AND pattern_literal = ? AND path = ?
	`, workflowID, patternLiteral, path)

	var markedAt time.Time
	if err := row.Scan(&markedAt); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("filestate: checking %s: %w", path, err)
	}

	return !mtime.After(markedAt), nil
}
