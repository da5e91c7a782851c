// Package assistanterrors defines the typed error taxonomy shared across
// the vault, scheduler, step-engine, and context-manager packages.
package assistanterrors

import "fmt"

// Kind identifies which error category a Error belongs to.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindDirectiveParse    Kind = "directive_parse"
	KindPatternResolution Kind = "pattern_resolution"
	KindTrigger           Kind = "trigger"
	KindLLM               Kind = "llm"
	KindIO                Kind = "io"
	KindStore             Kind = "store"
)

// Error is the structured error type used throughout AssistantMD. It
// carries enough context (workflow id, section name, the offending
// directive literal) to render a compiler-style diagnostic via
// pkg/console.FormatError, and a Fatal() method that encodes §7's
// step-fatal vs run-fatal propagation rules.
type Error struct {
	Kind       Kind
	Message    string
	WorkflowID string
	Section    string
	Directive  string // raw directive literal, e.g. "@input file: {pending:3}"
	Cause      error

	orchestratorFatal bool
}

func (e *Error) Error() string {
	var loc string
	switch {
	case e.WorkflowID != "" && e.Section != "":
		loc = fmt.Sprintf("%s/%s: ", e.WorkflowID, e.Section)
	case e.WorkflowID != "":
		loc = e.WorkflowID + ": "
	}
	msg := loc + string(e.Kind) + ": " + e.Message
	if e.Directive != "" {
		msg += fmt.Sprintf(" (directive: %q)", e.Directive)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error aborts the whole workflow run, as
// opposed to failing only the step or section that raised it. Per §7, only
// StoreError can be run-fatal, and only when the failure happens in the
// orchestrator itself rather than a per-record operation; every other kind
// is step/section-scoped and never aborts the run on its own.
func (e *Error) Fatal() bool {
	return e.Kind == KindStore && e.orchestratorFatal
}

// MarkOrchestratorFatal marks a StoreError as raised by the orchestrator
// itself (run-fatal) rather than during a per-record operation
// (recoverable; the run continues where safe).
func (e *Error) MarkOrchestratorFatal() *Error {
	e.orchestratorFatal = true
	return e
}

// Configuration builds a ConfigurationError: missing/invalid settings,
// missing secrets, or an unknown model alias. Callers degrade gracefully —
// mark the tool/model "Unavailable" and fail the step with this message.
func Configuration(workflowID, section, message string) *Error {
	return &Error{Kind: KindConfiguration, WorkflowID: workflowID, Section: section, Message: message}
}

// DirectiveParse builds a DirectiveParseError for a malformed directive or
// unknown scheme. Fails the containing step; the rest of the workflow run
// continues.
func DirectiveParse(workflowID, section, directive, message string) *Error {
	return &Error{Kind: KindDirectiveParse, WorkflowID: workflowID, Section: section, Directive: directive, Message: message}
}

// PatternResolution builds a PatternResolutionError for a rejected pattern
// (`..`, `**`, an absolute path, or an unknown token).
func PatternResolution(workflowID, section, pattern, message string) *Error {
	return &Error{Kind: KindPatternResolution, WorkflowID: workflowID, Section: section, Directive: pattern, Message: message}
}

// Trigger builds a TriggerError for an invalid crontab or a past one-time
// datetime. Marks the workflow invalid for scheduling; it remains visible
// in status.
func Trigger(workflowID, message string, cause error) *Error {
	return &Error{Kind: KindTrigger, WorkflowID: workflowID, Message: message, Cause: cause}
}

// LLM builds an LLMError for a provider timeout or provider-side failure.
// Fails the step; no automatic retry happens at the step level.
func LLM(workflowID, section, message string, cause error) *Error {
	return &Error{Kind: KindLLM, WorkflowID: workflowID, Section: section, Message: message, Cause: cause}
}

// IO builds an IOError for a file write/move failure.
func IO(workflowID, message string, cause error) *Error {
	return &Error{Kind: KindIO, WorkflowID: workflowID, Message: message, Cause: cause}
}

// Store builds a StoreError for a persistence failure. By default a
// per-record operation failure (the run continues where safe); call
// MarkOrchestratorFatal on the result if the failure occurred in the
// orchestrator itself.
func Store(message string, cause error) *Error {
	return &Error{Kind: KindStore, Message: message, Cause: cause}
}
