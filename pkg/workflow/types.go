// Package workflow implements the Workflow Parser and the in-memory
// Workflow/Section data model from §3/§4.3: splitting one markdown file's
// frontmatter from its `##` sections, extracting each section's directive
// block and body, and computing the source hash used for cache and job
// diffing.
package workflow

import "time"

// EngineKind selects whether a workflow runs through the Step Workflow
// Engine (§4.6) or is an interactive chat-only template with no scheduled
// execution of its own.
type EngineKind string

const (
	EngineStep        EngineKind = "step"
	EngineInteractive EngineKind = "interactive"
)

// ScheduleKind discriminates a workflow's schedule_spec (§3).
type ScheduleKind string

const (
	ScheduleNone ScheduleKind = "none"
	ScheduleCron ScheduleKind = "cron"
	ScheduleOnce ScheduleKind = "once"
)

// Schedule is the parsed `schedule:` frontmatter value: either absent, a
// 5-field crontab, or a one-time absolute datetime.
type Schedule struct {
	Kind     ScheduleKind
	Cron     string    // 5-field crontab, when Kind == ScheduleCron
	Once     time.Time // absolute datetime, when Kind == ScheduleOnce
	RawValue string    // original frontmatter value, for error messages
}

// Section is one `##` heading's worth of a workflow file: its heading text,
// the directive block at the top of its body (kept raw; pkg/directive
// parses it), and the body that follows the directive block.
type Section struct {
	Name          string
	DirectivesRaw string // contiguous @-prefixed lines at the top of the body
	Body          string // body_template: everything after the directive block
}

// Workflow is one parsed `.md` file under a vault's Workflows/ tree.
type Workflow struct {
	// GlobalID = "{vault}/{relative-path-without-extension}"; stable for a
	// given file path, changes on rename (§3 invariant; also the key for
	// {pending} tracking per DESIGN.md Open Question #2).
	GlobalID string
	Vault    string
	Path     string // relative path within the vault, including extension

	EngineKind    EngineKind
	Schedule      Schedule
	Enabled       bool
	WeekStartDay  time.Weekday
	Description   string
	Frontmatter   map[string]string
	Sections      []Section
	SourceHash    string

	// ParseError records a file-level parse failure (§4.4): the workflow
	// still loads (for status visibility) but cannot be executed or
	// scheduled.
	ParseError error
}
