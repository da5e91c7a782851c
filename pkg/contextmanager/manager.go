package contextmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/assistanterrors"
	"github.com/dodgybadger/assistantmd/pkg/buffer"
	"github.com/dodgybadger/assistantmd/pkg/directive"
	"github.com/dodgybadger/assistantmd/pkg/llm"
	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/pattern"
)

var managerLog = logger.New("contextmanager:manager")

const (
	defaultRecentRuns      = 5
	defaultRecentSummaries = 3
	defaultTokenThreshold  = 0 // 0 disables the threshold gate entirely
	approxCharsPerToken    = 4
)

// Writer persists a context step's `@output file:` target, matching
// stepengine.Writer's shape so pkg/vaultio.FileWriter satisfies both.
type Writer interface {
	Read(vault, relPath string) (string, error)
	Write(vault, relPath, content string) error
}

// ModelResolver resolves a `@model` alias, matching stepengine.ModelResolver.
type ModelResolver interface {
	Resolve(alias string) (llm.Resolved, error)
}

// ToolResolver resolves `@tools`, matching stepengine.ToolResolver.
type ToolResolver interface {
	Resolve(ctx context.Context, workflowID, section string, names []string) ([]llm.ToolDefinition, error)
	Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error)
}

// Deps are the Manager's collaborators.
type Deps struct {
	Store        *Store
	Models       ModelResolver
	Tools        ToolResolver
	Writer       Writer
	DefaultAlias string // fallback @model alias when a step declares none
}

// Manager runs the Context Manager pipeline (§4.7) for one chat turn at a
// time; it holds no per-turn state (see TurnInput/TurnResult), so one
// Manager serves every concurrent chat session.
type Manager struct {
	deps Deps
}

// New builds a Manager over deps.
func New(deps Deps) *Manager {
	return &Manager{deps: deps}
}

// TurnInput is everything one Run call needs to reshape a chat turn.
type TurnInput struct {
	SessionID       string
	Vault           string
	VaultRoot       string
	Template        Template
	History         []llm.Message // prior turns, oldest first; excludes LatestUserInput
	LatestUserInput string
	ReferenceTime   time.Time
	WeekStartDay    time.Weekday
	// Buffers is the session-scoped variable store `@output variable:`/
	// `@input variable:` read and write; supplied by the caller (the Chat
	// Executor owns one buffer.Store per ChatSession) so a context step's
	// output survives across turns within the same session. A nil value
	// means the turn has no variable routing available.
	Buffers *buffer.Store
}

// TurnResult is the Context Manager's output: the reshaped message list to
// hand the chat agent, plus the Chat Instructions text to append to its
// system instructions.
type TurnResult struct {
	Messages         []llm.Message
	ChatInstructions string
}

// Run executes §4.7's per-turn algorithm: compute the passthrough slice,
// then run each context step in order (cache lookup, manager LLM
// invocation, output routing, and injection of a system summary message
// ahead of the passthrough slice). A step whose own token threshold is set
// and above the full history's estimated token count is skipped.
func (m *Manager) Run(ctx context.Context, in TurnInput) (TurnResult, error) {
	passthroughRuns := directive.PassthroughRuns{All: true}
	if in.Template.PassthroughRuns != nil {
		passthroughRuns = *in.Template.PassthroughRuns
	}
	passthrough := PassthroughSlice(in.History, passthroughRuns)

	fullText := historyText(in.History) + "\n" + in.LatestUserInput
	fullTokens := estimateTokens(fullText)

	persisted := map[string]bool{}
	var summaries []string

	for _, step := range in.Template.Steps {
		threshold := defaultTokenThreshold
		if step.Directives.TokenThreshold != nil {
			threshold = *step.Directives.TokenThreshold
		}
		if threshold > 0 && fullTokens < threshold {
			managerLog.Printf("session=%s step=%q skipped: %d tokens below threshold %d", in.SessionID, step.Name, fullTokens, threshold)
			continue
		}

		summary, err := m.runStep(ctx, in, step, persisted)
		if err != nil {
			// Fail-open (§4.7 Failure): the section is skipped, the chat
			// proceeds with the passthrough slice.
			managerLog.Printf("session=%s step=%q failed open: %v", in.SessionID, step.Name, err)
			continue
		}
		if summary != "" {
			summaries = append(summaries, summary)
		}
	}

	result := TurnResult{ChatInstructions: in.Template.ChatInstructions}
	if len(summaries) > 0 {
		compiled := "Context summary (compiled): " + strings.Join(summaries, "\n\n")
		result.Messages = append(result.Messages, llm.Message{Role: llm.RoleSystem, Text: compiled, Timestamp: in.ReferenceTime})
	}
	result.Messages = append(result.Messages, passthrough...)
	return result, nil
}

// runStep executes one context step's cache-lookup/invoke/persist/route
// cycle (§4.7 step 3), returning the summary text to inject.
func (m *Manager) runStep(ctx context.Context, in TurnInput, step Step, persisted map[string]bool) (string, error) {
	recentRuns := defaultRecentRuns
	if step.Directives.RecentRuns != nil {
		recentRuns = *step.Directives.RecentRuns
	}
	recentSummaries := defaultRecentSummaries
	if step.Directives.RecentSummaries != nil {
		recentSummaries = *step.Directives.RecentSummaries
	}

	priorSummaries, err := m.deps.Store.RecentSummaries(in.SessionID, recentSummaries)
	if err != nil {
		return "", err
	}

	recent := recentTurnsText(in.History, recentRuns)
	prompt := renderManagerPrompt(in.Template.ContextInstructions, priorSummaries, step.Body, recent, in.LatestUserInput)

	cacheKey := cacheKeyFor(in.Vault, in.Template.Path, step.Index, step.Name)

	var summary string
	var fromCache bool
	if step.Directives.Cache != nil {
		if cached, hit, err := m.deps.Store.CacheLookup(cacheKey, in.Template.SourceHash, in.ReferenceTime); err == nil && hit {
			summary, fromCache = cached, true
		}
	}

	modelAlias := m.deps.DefaultAlias
	if step.Directives.Model != nil {
		modelAlias = step.Directives.Model.Alias
	}

	if !fromCache {
		resolved, err := m.deps.Models.Resolve(modelAlias)
		if err != nil {
			return "", assistanterrors.Configuration("", step.Name, err.Error())
		}

		var toolDefs []llm.ToolDefinition
		if step.Directives.Tools != nil && !step.Directives.Tools.None {
			names := toolNames(*step.Directives.Tools)
			toolDefs, err = m.deps.Tools.Resolve(ctx, in.SessionID, step.Name, names)
			if err != nil {
				return "", err
			}
		}

		req := llm.Request{
			ModelID:  resolved.ModelID,
			Messages: []llm.Message{{Role: llm.RoleUser, Text: prompt, Timestamp: in.ReferenceTime}},
			Tools:    toolDefs,
			Thinking: step.Directives.Model != nil && step.Directives.Model.Thinking,
		}
		resp, err := resolved.Provider.Complete(ctx, req)
		if err != nil {
			return "", assistanterrors.LLM("", step.Name, "context manager LLM call failed", err)
		}
		summary = resp.Text

		if step.Directives.Cache != nil {
			expiresAt := cacheExpiry(*step.Directives.Cache, in.ReferenceTime, in.WeekStartDay)
			if err := m.deps.Store.CachePut(cacheKey, in.Template.SourceHash, summary, expiresAt); err != nil {
				managerLog.Printf("session=%s step=%q: caching summary: %v", in.SessionID, step.Name, err)
			}
		}
	}

	// Persist once per run: a run-local "persisted" flag on the cache key
	// prevents a cache-miss retry within the same turn from double-writing
	// a ContextSummaryRecord (§4.7 step 3d).
	if !persisted[cacheKey] {
		persisted[cacheKey] = true
		rec := SummaryRecord{
			SessionID: in.SessionID, SectionIndex: step.Index, SectionName: step.Name,
			TemplateHash: in.Template.SourceHash, ModelAlias: modelAlias,
			InputPayload: marshalPayload(map[string]any{"recent": recent, "priorSummaries": priorSummaries}),
			RenderedPrompt: prompt, RawOutput: summary, CreatedAt: in.ReferenceTime,
		}
		if err := m.deps.Store.PersistSummary(rec); err != nil {
			managerLog.Printf("session=%s step=%q: persisting summary: %v", in.SessionID, step.Name, err)
		}
	}

	if err := m.routeOutput(in, step, summary); err != nil {
		managerLog.Printf("session=%s step=%q: routing output: %v", in.SessionID, step.Name, err)
	}

	return summary, nil
}

// routeOutput implements §4.7 step 3e's `@output file:`/`@output
// variable:` routing; the caller already injects the compiled system
// summary regardless of whether an explicit output target is declared.
func (m *Manager) routeOutput(in TurnInput, step Step, summary string) error {
	out := step.Directives.Output
	if out == nil {
		return nil
	}

	switch out.Scheme {
	case directive.SchemeVariable:
		if in.Buffers == nil {
			return nil
		}
		mode := buffer.Replace
		if out.WriteMode == directive.WriteAppend {
			mode = buffer.Append
		}
		in.Buffers.Put(out.Target, summary, mode, nil)
		return nil

	case directive.SchemeFile:
		relPath, err := pattern.ResolveSingle(out.Target, in.ReferenceTime, in.WeekStartDay)
		if err != nil {
			return err
		}
		final := summary
		if step.Directives.Header != "" {
			header, err := pattern.ResolveSingle(step.Directives.Header, in.ReferenceTime, in.WeekStartDay)
			if err != nil {
				return err
			}
			final = "# " + header + "\n\n" + summary
		}
		if step.Directives.Output.WriteMode == directive.WriteAppend {
			existing, _ := m.deps.Writer.Read(in.Vault, relPath)
			if existing != "" {
				final = existing + "\n" + final
			}
		}
		return m.deps.Writer.Write(in.Vault, relPath, final)
	}
	return nil
}

func toolNames(sel directive.ToolSelection) []string {
	var names []string
	for n := range sel.Names {
		names = append(names, n)
	}
	return names
}

// renderManagerPrompt builds §4.7 step 3b's manager prompt: "[Context
// Instructions] + [prior M summaries] + [section body] + [last R non-tool
// turns] + [latest user input]".
func renderManagerPrompt(instructions string, priorSummaries []string, body, recent, latest string) string {
	var parts []string
	if instructions != "" {
		parts = append(parts, strings.TrimSpace(instructions))
	}
	if len(priorSummaries) > 0 {
		parts = append(parts, "Prior summaries:\n"+strings.Join(priorSummaries, "\n---\n"))
	}
	parts = append(parts, strings.TrimSpace(body))
	if recent != "" {
		parts = append(parts, "Recent turns:\n"+recent)
	}
	parts = append(parts, "Latest user input:\n"+latest)
	return strings.Join(parts, "\n\n")
}

// cacheKeyFor matches §4.7 step 3c's "(vault, template_path, index:name,
// template_source_hash)" — template_source_hash is compared separately by
// Store.CacheLookup so a template edit always misses even against a stale key.
func cacheKeyFor(vault, templatePath string, index int, name string) string {
	return fmt.Sprintf("%s\x00%s\x00%d:%s", vault, templatePath, index, name)
}

// cacheExpiry turns a CacheSpec into an absolute expiry instant. "session"
// never expires on its own (only a template_hash change invalidates it);
// "daily"/"weekly" expire at the start of the next day/week.
func cacheExpiry(spec directive.CacheSpec, now time.Time, weekStart time.Weekday) time.Time {
	switch {
	case spec.Session:
		return time.Time{}
	case spec.Daily:
		return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	case spec.Weekly:
		daysUntil := (int(weekStart) - int(now.Weekday()) + 7) % 7
		if daysUntil == 0 {
			daysUntil = 7
		}
		return time.Date(now.Year(), now.Month(), now.Day()+daysUntil, 0, 0, 0, 0, now.Location())
	default:
		return now.Add(spec.TTL)
	}
}

func estimateTokens(s string) int {
	return len(s) / approxCharsPerToken
}

func historyText(history []llm.Message) string {
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	return b.String()
}
