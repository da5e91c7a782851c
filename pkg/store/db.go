// Package store owns the single sqlite database under the system root that
// the scheduler job table, file-state tracker, and context manager records
// all share (§6 "Persistent state"). It runs schema migrations the way
// pkg/database/migrate.go's MigrationRunner does — a schema_migrations
// tracking table plus a sorted, idempotent list of versioned statements —
// adapted to a literal Go slice since this module has no on-disk migrations
// directory to read from.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("store:db")

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "scheduler_jobs", `
		CREATE TABLE IF NOT EXISTS scheduler_jobs (
			job_id TEXT PRIMARY KEY,
			trigger_string TEXT NOT NULL,
			source_hash TEXT NOT NULL,
			next_run_time DATETIME,
			args TEXT NOT NULL
		);
	`},
	{2, "file_state", `
		CREATE TABLE IF NOT EXISTS file_state (
			workflow_id TEXT NOT NULL,
			pattern_literal TEXT NOT NULL,
			path TEXT NOT NULL,
			content_sha256 TEXT NOT NULL,
			marked_at DATETIME NOT NULL,
			PRIMARY KEY (workflow_id, pattern_literal, path)
		);
	`},
	{3, "context_summary", `
		CREATE TABLE IF NOT EXISTS context_summary (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			section_index INTEGER NOT NULL,
			section_name TEXT NOT NULL,
			template_hash TEXT NOT NULL,
			model_alias TEXT NOT NULL,
			input_payload TEXT NOT NULL,
			rendered_prompt TEXT NOT NULL,
			raw_output TEXT NOT NULL,
			parsed_output TEXT,
			created_at DATETIME NOT NULL
		);
	`},
	{4, "context_cache", `
		CREATE TABLE IF NOT EXISTS context_cache (
			cache_key TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			template_hash TEXT NOT NULL,
			expires_at DATETIME
		);
	`},
	{5, "scheduler_run_log", `
		CREATE TABLE IF NOT EXISTS scheduler_run_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workflow_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			outcome TEXT NOT NULL
		);
	`},
}

// Open opens (creating if absent) system/assistantmd.db under systemRoot and
// applies any migrations not yet recorded in schema_migrations.
func Open(systemRoot string) (*sql.DB, error) {
	path := filepath.Join(systemRoot, "assistantmd.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	// modernc.org/sqlite has no native connection pool concurrency story;
	// a single writer avoids SQLITE_BUSY under the default rollback journal.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("opened store at %s", path)
	return db, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("store: creating schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("store: reading schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()

	sorted := make([]migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].version < sorted[j].version })

	for _, m := range sorted {
		if applied[m.version] {
			continue
		}
		log.Printf("applying migration %d: %s", m.version, m.name)
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("store: migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("store: recording migration %d: %w", m.version, err)
		}
	}
	return nil
}
