package filestate

import (
	"testing"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/store"
	"github.com/dodgybadger/assistantmd/pkg/testutil"
)

func openTestTracker(t *testing.T) *Tracker {
	t.Helper()
	db, err := store.Open(testutil.TempDir(t, "filestate-*"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestIsProcessed_UnknownFileReturnsFalse(t *testing.T) {
	tr := openTestTracker(t)
	ok, err := tr.IsProcessed("daily/standup", "{pending:3}", "timesheets/jan.md", "abc123", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected an unrecorded file to be unprocessed")
	}
}

func TestRecordConsumed_ThenIsProcessed_HashMatch(t *testing.T) {
	tr := openTestTracker(t)
	marked := time.Now()
	err := tr.RecordConsumed("daily/standup", "{pending:3}", []ConsumedEntry{
		{Path: "timesheets/jan.md", ContentSHA256: "abc123", MarkedAt: marked},
	})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := tr.IsProcessed("daily/standup", "{pending:3}", "timesheets/jan.md", "abc123", marked)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected matching hash to be processed")
	}
}

func TestIsProcessed_ContentEditRequeues(t *testing.T) {
	tr := openTestTracker(t)
	marked := time.Now()
	err := tr.RecordConsumed("daily/standup", "{pending:3}", []ConsumedEntry{
		{Path: "timesheets/jan.md", ContentSHA256: "abc123", MarkedAt: marked},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Content changed (new hash) and the file was edited after marking.
	ok, err := tr.IsProcessed("daily/standup", "{pending:3}", "timesheets/jan.md", "def456", marked.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected an edited file to be requeued")
	}
}

func TestIsProcessed_RenameWithoutEditDoesNotRequeue(t *testing.T) {
	tr := openTestTracker(t)
	marked := time.Now()
	err := tr.RecordConsumed("daily/standup", "{pending:3}", []ConsumedEntry{
		{Path: "timesheets/jan.md", ContentSHA256: "abc123", MarkedAt: marked},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Same path, same hash, mtime unchanged (a rename without content edit
	// does not bump mtime past marked_at) -> still processed.
	ok, err := tr.IsProcessed("daily/standup", "{pending:3}", "timesheets/jan.md", "abc123", marked)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected rename without edit to remain processed")
	}

	// Renamed path, same hash: the hash branch is path-independent, so the
	// renamed file must still be recognized as processed even though no
	// row exists under its new path.
	ok, err = tr.IsProcessed("daily/standup", "{pending:3}", "timesheets/january.md", "abc123", marked)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected a rename to a new path with unchanged content to remain processed")
	}
}

func TestIsProcessed_IndependentPerPatternLiteral(t *testing.T) {
	tr := openTestTracker(t)
	marked := time.Now()
	err := tr.RecordConsumed("daily/standup", "{pending:3}", []ConsumedEntry{
		{Path: "timesheets/jan.md", ContentSHA256: "abc123", MarkedAt: marked},
	})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := tr.IsProcessed("daily/standup", "{pending:5}", "timesheets/jan.md", "abc123", marked)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected a different pattern literal to track independently")
	}
}

func TestRecordConsumed_EmptyBatchIsNoop(t *testing.T) {
	tr := openTestTracker(t)
	if err := tr.RecordConsumed("daily/standup", "{pending:3}", nil); err != nil {
		t.Fatalf("unexpected error for an empty batch: %v", err)
	}
}
