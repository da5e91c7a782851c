package pattern

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestResolveSingle_TodayWithCustomFormat(t *testing.T) {
	ref := mustDate(t, "2026-02-10")
	got, err := ResolveSingle("{today:YYYYMMDD}", ref, time.Monday)
	if err != nil {
		t.Fatal(err)
	}
	if got != "20260210" {
		t.Errorf("got %q, want 20260210", got)
	}
}

func TestResolveSingle_ThisWeekMondayStart(t *testing.T) {
	ref := mustDate(t, "2026-02-10") // a Tuesday
	got, err := ResolveSingle("{this-week:YYYY-MM-DD}", ref, time.Monday)
	if err != nil {
		t.Fatal(err)
	}
	if got != "2026-02-09" {
		t.Errorf("got %q, want 2026-02-09", got)
	}
}

func TestResolveSingle_DefaultFormat(t *testing.T) {
	ref := mustDate(t, "2026-02-10")
	got, err := ResolveSingle("daily/{today}", ref, time.Monday)
	if err != nil {
		t.Fatal(err)
	}
	if got != "daily/2026-02-10" {
		t.Errorf("got %q, want daily/2026-02-10", got)
	}
}

func TestResolveSingle_RejectsCollectionToken(t *testing.T) {
	ref := mustDate(t, "2026-02-10")
	if _, err := ResolveSingle("journal/{latest:3}", ref, time.Monday); err == nil {
		t.Error("expected an error for a collection token in a single-value context")
	}
}

func TestResolveSingle_RejectsDotDot(t *testing.T) {
	ref := mustDate(t, "2026-02-10")
	if _, err := ResolveSingle("../secrets/{today}", ref, time.Monday); err == nil {
		t.Error("expected an error for a .. segment")
	}
}

func TestResolveSingle_RejectsAbsolute(t *testing.T) {
	ref := mustDate(t, "2026-02-10")
	if _, err := ResolveSingle("/etc/{today}", ref, time.Monday); err == nil {
		t.Error("expected an error for an absolute path")
	}
}

func TestResolveMany_LatestCapsAtN(t *testing.T) {
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "journal")
	if err := os.MkdirAll(journalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	names := []string{"a.md", "b.md", "c.md", "d.md"}
	for i, n := range names {
		p := filepath.Join(journalDir, n)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := time.Now().Add(time.Duration(i) * time.Minute)
		os.Chtimes(p, mt, mt)
	}

	got, err := ResolveMany("journal/{latest:2}", mustDate(t, "2026-02-10"), dir, time.Monday, ResolveManyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(got), got)
	}
	if got[0] != "journal/d.md" {
		t.Errorf("expected newest file first, got: %v", got)
	}
}

func TestResolveMany_LatestEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveMany("journal/{latest:5}", mustDate(t, "2026-02-10"), dir, time.Monday, ResolveManyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero results for a missing directory, got: %v", got)
	}
}

type fakeTracker struct {
	processed map[string]bool
}

func (f *fakeTracker) IsProcessed(workflowID, patternLiteral, relPath, contentHash string, mtime time.Time) (bool, error) {
	return f.processed[relPath], nil
}

func TestResolveMany_PendingSkipsProcessed(t *testing.T) {
	dir := t.TempDir()
	tsDir := filepath.Join(dir, "timesheets")
	if err := os.MkdirAll(tsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i, n := range []string{"jan.md", "feb.md", "mar.md"} {
		p := filepath.Join(tsDir, n)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mt := time.Now().Add(time.Duration(i) * time.Minute)
		os.Chtimes(p, mt, mt)
	}

	tracker := &fakeTracker{processed: map[string]bool{"timesheets/jan.md": true}}
	got, err := ResolveMany("timesheets/{pending:3}", mustDate(t, "2026-02-10"), dir, time.Monday,
		ResolveManyOptions{WorkflowID: "demo", PatternLiteral: "{pending:3}", Tracker: tracker})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 unprocessed files, got %d: %v", len(got), got)
	}
	if got[0] != "timesheets/feb.md" {
		t.Errorf("expected oldest-unprocessed-first ordering, got: %v", got)
	}
}

func TestResolveMany_PendingEmptyDirectoryNoLLMCall(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveMany("timesheets/{pending:3}", mustDate(t, "2026-02-10"), dir, time.Monday,
		ResolveManyOptions{WorkflowID: "demo", PatternLiteral: "{pending:3}", Tracker: &fakeTracker{processed: map[string]bool{}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero results for an empty directory, got: %v", got)
	}
}

func TestResolveMany_GlobMatchesLiteralStar(t *testing.T) {
	dir := t.TempDir()
	reportsDir := filepath.Join(dir, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"report-jan.md", "report-feb.md", "notes.md"} {
		if err := os.WriteFile(filepath.Join(reportsDir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ResolveMany("reports/report-*.md", mustDate(t, "2026-02-10"), dir, time.Monday, ResolveManyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(got), got)
	}
}

func TestResolveMany_RejectsDoubleStarAndDotDot(t *testing.T) {
	dir := t.TempDir()
	if _, err := ResolveMany("**/secrets.md", mustDate(t, "2026-02-10"), dir, time.Monday, ResolveManyOptions{}); err == nil {
		t.Error("expected ** to be rejected")
	}
	if _, err := ResolveMany("../outside/{today}", mustDate(t, "2026-02-10"), dir, time.Monday, ResolveManyOptions{}); err == nil {
		t.Error("expected .. to be rejected")
	}
}

func TestResolveMany_SingleDateTokenExistenceCheck(t *testing.T) {
	dir := t.TempDir()
	dailyDir := filepath.Join(dir, "daily")
	if err := os.MkdirAll(dailyDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dailyDir, "2026-02-10.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveMany("daily/{today}", mustDate(t, "2026-02-10"), dir, time.Monday, ResolveManyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "daily/2026-02-10.md" {
		t.Errorf("expected the existing file to resolve, got: %v", got)
	}

	got, err = ResolveMany("daily/{yesterday}", mustDate(t, "2026-02-10"), dir, time.Monday, ResolveManyOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no match for a nonexistent file, got: %v", got)
	}
}

func TestParseWeekStartDay(t *testing.T) {
	got, err := ParseWeekStartDay("Sunday")
	if err != nil {
		t.Fatal(err)
	}
	if got != time.Sunday {
		t.Errorf("got %v, want Sunday", got)
	}

	if _, err := ParseWeekStartDay("notaday"); err == nil {
		t.Error("expected an error for an invalid week start day")
	}
}
