package store

import (
	"testing"

	"github.com/dodgybadger/assistantmd/pkg/testutil"
)

func TestOpen_CreatesTablesIdempotently(t *testing.T) {
	dir := testutil.TempDir(t, "store-*")

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"scheduler_jobs", "file_state", "context_summary", "context_cache", "scheduler_run_log"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestOpen_ReopenAppliesNoDuplicateMigrations(t *testing.T) {
	dir := testutil.TempDir(t, "store-*")

	db1, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db1.Close()

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error on reopen: %v", err)
	}
	defer db2.Close()

	var count int
	if err := db2.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d applied migrations, got %d", len(migrations), count)
	}
}
