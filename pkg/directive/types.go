// Package directive implements the discriminated DirectiveValue types and
// per-directive parsers from §3/§4.2: `@input`, `@output`, `@header`,
// `@model`, `@tools`, `@write-mode`, `@run-on`, `@cache`, `@recent-runs`,
// `@recent-summaries`, `@token-threshold`, `@passthrough-runs`. Unknown
// directives and malformed values fail closed with a structured
// assistanterrors.Error rather than duck-typing through an untyped map.
package directive

import "time"

// Scheme discriminates an @input/@output target between a vault file
// pattern and a run-scoped buffer variable.
type Scheme string

const (
	SchemeFile     Scheme = "file"
	SchemeVariable Scheme = "variable"
)

// ImagesMode controls whether images referenced by an input are inlined.
type ImagesMode string

const (
	ImagesAuto   ImagesMode = "auto"
	ImagesIgnore ImagesMode = "ignore"
)

// InputRef is a parsed `@input` directive.
type InputRef struct {
	Scheme   Scheme
	Target   string // raw pattern (file:) or buffer name (variable:)
	Required bool
	RefsOnly bool
	Images   ImagesMode
	Raw      string // the original directive line, for error messages
}

// WriteMode controls how an `@output` directive combines with whatever
// already exists at its target.
type WriteMode string

const (
	WriteAppend  WriteMode = "append"
	WriteNew     WriteMode = "new"
	WriteReplace WriteMode = "replace"
)

// OutputTarget is a parsed `@output` directive.
type OutputTarget struct {
	Scheme    Scheme
	Target    string
	WriteMode WriteMode
	Raw       string
}

// ModelSelection is a parsed `@model` directive.
type ModelSelection struct {
	Alias    string
	Thinking bool
}

// ToolSelection is a parsed `@tools` directive. All/None are mutually
// exclusive special cases of Names.
type ToolSelection struct {
	Names map[string]bool
	All   bool
	None  bool
}

// Allows reports whether a tool name is enabled under this selection.
func (s ToolSelection) Allows(name string) bool {
	if s.None {
		return false
	}
	if s.All {
		return true
	}
	return s.Names[name]
}

// CacheSpec is a parsed `@cache` directive.
type CacheSpec struct {
	TTL     time.Duration
	Session bool
	Daily   bool
	Weekly  bool
}

// RunOn is a parsed `@run-on` directive: either a set of weekdays, the
// `daily` default (every day), or `never` (the step is always skipped).
type RunOn struct {
	Weekdays map[time.Weekday]bool
	Daily    bool
	Never    bool
}

// Matches reports whether the step should execute on the given reference day.
func (r RunOn) Matches(day time.Weekday) bool {
	if r.Never {
		return false
	}
	if r.Daily {
		return true
	}
	return r.Weekdays[day]
}

// DefaultRunOn is `daily`, matching §4.2's stated default.
func DefaultRunOn() RunOn {
	return RunOn{Daily: true}
}

// Map is every directive parsed from one section's contiguous directive
// block. Nil/zero fields mean the directive was absent; integer overrides
// use pointers so "absent" and "explicitly 0" are distinguishable.
type Map struct {
	Inputs          []InputRef
	Output          *OutputTarget
	Header          string
	Model           *ModelSelection
	Tools           *ToolSelection
	RunOn           RunOn
	Cache           *CacheSpec
	RecentRuns      *int
	RecentSummaries *int
	TokenThreshold  *int
	PassthroughRuns *PassthroughRuns
}

// PassthroughRuns is `@passthrough-runs N|all`.
type PassthroughRuns struct {
	All   bool
	Count int
}

// NewMap returns a Map with RunOn defaulted to daily, matching §4.2.
func NewMap() Map {
	return Map{RunOn: DefaultRunOn()}
}
