package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/pattern"
)

// BuildWorkflow turns a ParsedFile plus its file identity into a Workflow
// record: interprets the frontmatter keys §3 names (engine_kind, schedule,
// enabled, week_start_day, description) and leaves everything else in
// Frontmatter untouched.
func BuildWorkflow(vault, relPath string, parsed ParsedFile, sourceHash string) (Workflow, error) {
	globalID := vault + "/" + strings.TrimSuffix(relPath, ".md")

	w := Workflow{
		GlobalID:     globalID,
		Vault:        vault,
		Path:         relPath,
		EngineKind:   EngineStep,
		Enabled:      true,
		WeekStartDay: time.Monday,
		Frontmatter:  parsed.Frontmatter,
		Sections:     parsed.Sections,
		SourceHash:   sourceHash,
	}

	if kind, ok := parsed.Frontmatter["engine_kind"]; ok {
		switch EngineKind(strings.TrimSpace(kind)) {
		case EngineStep, EngineInteractive:
			w.EngineKind = EngineKind(strings.TrimSpace(kind))
		default:
			return Workflow{}, fmt.Errorf("workflow %s: unknown engine_kind %q", globalID, kind)
		}
	}

	if v, ok := parsed.Frontmatter["enabled"]; ok {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Workflow{}, fmt.Errorf("workflow %s: invalid enabled %q", globalID, v)
		}
		w.Enabled = enabled
	}

	if v, ok := parsed.Frontmatter["week_start_day"]; ok {
		day, err := pattern.ParseWeekStartDay(v)
		if err != nil {
			return Workflow{}, fmt.Errorf("workflow %s: %w", globalID, err)
		}
		w.WeekStartDay = day
	}

	w.Description = parsed.Frontmatter["description"]

	sched, err := ParseSchedule(parsed.Frontmatter["schedule"])
	if err != nil {
		return Workflow{}, fmt.Errorf("workflow %s: %w", globalID, err)
	}
	w.Schedule = sched

	return w, nil
}

// ParseSchedule parses the `schedule:` frontmatter value (§4.5): empty (no
// schedule), "cron: <5 fields>", or "once: <absolute datetime>".
func ParseSchedule(raw string) (Schedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Schedule{Kind: ScheduleNone}, nil
	}

	switch {
	case strings.HasPrefix(raw, "cron:"):
		cron := strings.TrimSpace(strings.TrimPrefix(raw, "cron:"))
		fields := strings.Fields(cron)
		if len(fields) != 5 {
			return Schedule{}, fmt.Errorf("invalid cron schedule %q: expected 5 fields", raw)
		}
		return Schedule{Kind: ScheduleCron, Cron: cron, RawValue: raw}, nil
	case strings.HasPrefix(raw, "once:"):
		when := strings.TrimSpace(strings.TrimPrefix(raw, "once:"))
		t, err := parseAbsoluteDatetime(when)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid once schedule %q: %w", raw, err)
		}
		return Schedule{Kind: ScheduleOnce, Once: t, RawValue: raw}, nil
	default:
		return Schedule{}, fmt.Errorf("unrecognized schedule %q: expected 'cron: ...' or 'once: ...'", raw)
	}
}

var absoluteDatetimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
}

// parseAbsoluteDatetime rejects relative terms ("tomorrow", "next week")
// by only accepting fixed absolute-datetime layouts, per §4.5's "rejects
// past times and relative terms."
func parseAbsoluteDatetime(s string) (time.Time, error) {
	for _, layout := range absoluteDatetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected an absolute datetime, got %q", s)
}
