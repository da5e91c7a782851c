// Package stepengine implements the Step Workflow Engine (§4.6): the
// per-run orchestrator that walks a workflow's sections in order, resolving
// directives, invoking the LLM, and routing outputs. Grounded on the
// teacher's compiler pipeline shape (parse -> resolve -> emit, one pass per
// unit of work) generalized from "compile to GH Actions YAML" into "execute
// against an LLM," per DESIGN.md's "deleted teacher modules" note.
package stepengine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/activitylog"
	"github.com/dodgybadger/assistantmd/pkg/assistanterrors"
	"github.com/dodgybadger/assistantmd/pkg/buffer"
	"github.com/dodgybadger/assistantmd/pkg/directive"
	"github.com/dodgybadger/assistantmd/pkg/filestate"
	"github.com/dodgybadger/assistantmd/pkg/llm"
	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/pattern"
	"github.com/dodgybadger/assistantmd/pkg/settings"
	"github.com/dodgybadger/assistantmd/pkg/sliceutil"
	"github.com/dodgybadger/assistantmd/pkg/vault"
	"github.com/dodgybadger/assistantmd/pkg/workflow"
)

var log = logger.New("stepengine:engine")

const maxToolRounds = 8

// Writer persists a step's `@output file:` target. Satisfied by
// pkg/vaultio.FileWriter in production and a fake in tests, matching the
// teacher's pattern of narrow interfaces at package seams.
type Writer interface {
	Read(vault, relPath string) (string, error)
	Write(vault, relPath string, content string) error
}

// ModelResolver resolves a `@model` alias to a ready-to-call provider.
// Satisfied by *llm.Registry; narrowed to an interface here so tests can
// substitute a fixed EchoProvider without a real provider SDK client.
type ModelResolver interface {
	Resolve(alias string) (llm.Resolved, error)
}

// ToolResolver resolves `@tools` server names to tool definitions and
// dispatches tool calls. Satisfied by *tools.Registry.
type ToolResolver interface {
	Resolve(ctx context.Context, workflowID, section string, names []string) ([]llm.ToolDefinition, error)
	Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error)
}

// Deps are the Engine's collaborators, each a package already built to its
// own spec section.
type Deps struct {
	Vault     *vault.Cache
	DataRoot  string
	Models    ModelResolver
	Tools     ToolResolver
	FileState *filestate.Tracker
	Activity  *activitylog.Log
	Writer    Writer
	Settings  settings.Settings
}

// Engine runs one workflow at a time; it holds no per-run state itself (see
// StepOutcome/RunResult), so one Engine serves every concurrent run.
type Engine struct {
	deps Deps
}

// New builds an Engine over deps.
func New(deps Deps) *Engine {
	return &Engine{deps: deps}
}

// StepOutcome records what happened to a single section within a run.
type StepOutcome struct {
	Section string
	Skipped bool
	SkipWhy string
	Err     error
}

// RunResult is the full outcome of one Run call.
type RunResult struct {
	WorkflowID string
	Steps      []StepOutcome
}

// pendingBatch accumulates the `{pending}`-sourced paths a step consumed,
// keyed by pattern literal, so file-state is only updated once the whole
// step has completed successfully (§4.6 step 8, §4.9).
type pendingBatch struct {
	patternLiteral string
	entries        []filestate.ConsumedEntry
}

// Run executes every section of the workflow named by globalID, in order,
// against referenceTime as "now" (§4.6). A workflow not found in the vault
// cache is a caller error, not a step failure.
func (e *Engine) Run(ctx context.Context, globalID string, referenceTime time.Time) (RunResult, error) {
	w, ok := e.deps.Vault.Get(globalID)
	if !ok {
		return RunResult{}, fmt.Errorf("stepengine: workflow %q not found", globalID)
	}

	e.deps.Activity.Record(activitylog.EventRunStarted, globalID, nil)

	vaultRoot := filepath.Join(e.deps.DataRoot, w.Vault)
	buffers := buffer.New()
	createdOutputs := map[string]bool{}

	result := RunResult{WorkflowID: globalID}
	for _, section := range w.Sections {
		outcome := e.runSection(ctx, w, section, vaultRoot, referenceTime, buffers, createdOutputs)
		result.Steps = append(result.Steps, outcome)
		if outcome.Err != nil {
			e.deps.Activity.RecordError(activitylog.EventStepFailed, globalID, outcome.Err, map[string]any{"section": section.Name})
		}
	}

	e.deps.Activity.Record(activitylog.EventRunCompleted, globalID, map[string]any{"steps": len(result.Steps)})
	return result, nil
}

func (e *Engine) runSection(ctx context.Context, w workflow.Workflow, section workflow.Section, vaultRoot string, referenceTime time.Time, buffers *buffer.Store, createdOutputs map[string]bool) StepOutcome {
	outcome := StepOutcome{Section: section.Name}

	dmap, _, err := directive.Parse(w.GlobalID, section.Name, section.DirectivesRaw)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	if !dmap.RunOn.Matches(referenceTime.Weekday()) {
		outcome.Skipped = true
		outcome.SkipWhy = "run-on does not match " + referenceTime.Weekday().String()
		return outcome
	}

	rendered, batches, err := e.resolveInputs(w, section.Name, dmap.Inputs, vaultRoot, referenceTime, buffers)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	if rendered == nil {
		outcome.Skipped = true
		outcome.SkipWhy = "a required input resolved to nothing"
		return outcome
	}

	prompt := section.Body
	if len(rendered.blocks) > 0 {
		prompt = strings.Join(rendered.blocks, "\n\n") + "\n\n" + section.Body
	}

	resp, err := e.invoke(ctx, w, section.Name, dmap, prompt)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	if err := e.routeOutput(w, section.Name, dmap.Output, dmap.Header, resp.Text, vaultRoot, referenceTime, buffers, createdOutputs); err != nil {
		outcome.Err = err
		return outcome
	}

	for _, b := range batches {
		if err := e.deps.FileState.RecordConsumed(w.GlobalID, b.patternLiteral, b.entries); err != nil {
			outcome.Err = assistanterrors.Store("recording consumed files", err)
			return outcome
		}
	}

	return outcome
}

type renderedInputs struct {
	blocks []string
}

// resolveInputs implements §4.6 step 3: resolves every @input, rendering
// file contents under a source-identifying header, or the path list alone
// for refs_only inputs. A nil, nil return (no error) means a required input
// was empty and the step must be skipped without calling the LLM.
func (e *Engine) resolveInputs(w workflow.Workflow, sectionName string, inputs []directive.InputRef, vaultRoot string, referenceTime time.Time, buffers *buffer.Store) (*renderedInputs, []pendingBatch, error) {
	out := &renderedInputs{}
	var batches []pendingBatch

	for _, ref := range inputs {
		switch ref.Scheme {
		case directive.SchemeVariable:
			if !buffers.Has(ref.Target) && ref.Required {
				return nil, nil, nil
			}
			content := buffers.Get(ref.Target)
			out.blocks = append(out.blocks, fmt.Sprintf("### %s\n%s", ref.Target, content))

		case directive.SchemeFile:
			paths, err := pattern.ResolveMany(ref.Target, referenceTime, vaultRoot, w.WeekStartDay, pattern.ResolveManyOptions{
				WorkflowID:     w.GlobalID,
				PatternLiteral: ref.Target,
				Tracker:        e.deps.FileState,
			})
			if err != nil {
				return nil, nil, assistanterrors.PatternResolution(w.GlobalID, sectionName, ref.Target, err.Error())
			}
			if len(paths) == 0 {
				if ref.Required {
					return nil, nil, nil
				}
				continue
			}

			if ref.RefsOnly {
				out.blocks = append(out.blocks, fmt.Sprintf("### %s (references only)\n%s", ref.Target, strings.Join(paths, "\n")))
				continue
			}

			var entries []filestate.ConsumedEntry
			for _, p := range paths {
				content, err := e.deps.Writer.Read(w.Vault, p)
				if err != nil {
					return nil, nil, assistanterrors.IO(w.GlobalID, fmt.Sprintf("reading input %s", p), err)
				}
				out.blocks = append(out.blocks, fmt.Sprintf("### %s\n%s", p, content))
				entries = append(entries, filestate.ConsumedEntry{Path: p, ContentSHA256: contentHash(content), MarkedAt: referenceTime})
			}
			if strings.Contains(ref.Target, "{pending") {
				batches = append(batches, pendingBatch{patternLiteral: ref.Target, entries: entries})
			}
		}
	}
	return out, batches, nil
}

// invoke implements §4.6 steps 4/6: resolves the model+tools, then runs a
// bounded tool-calling loop until the model stops requesting tools.
func (e *Engine) invoke(ctx context.Context, w workflow.Workflow, sectionName string, dmap directive.Map, prompt string) (llm.Response, error) {
	if dmap.Model == nil {
		return llm.Response{}, assistanterrors.Configuration(w.GlobalID, sectionName, "no @model directive")
	}

	resolved, err := e.deps.Models.Resolve(dmap.Model.Alias)
	if err != nil {
		return llm.Response{}, assistanterrors.Configuration(w.GlobalID, sectionName, err.Error())
	}

	var toolDefs []llm.ToolDefinition
	if dmap.Tools != nil && !dmap.Tools.None {
		names := enabledToolServerNames(*dmap.Tools, e.deps.Settings)
		toolDefs, err = e.deps.Tools.Resolve(ctx, w.GlobalID, sectionName, names)
		if err != nil {
			return llm.Response{}, err
		}
	}

	messages := []llm.Message{{Role: llm.RoleUser, Text: prompt, Timestamp: time.Now()}}
	req := llm.Request{ModelID: resolved.ModelID, Messages: messages, Tools: toolDefs, Thinking: dmap.Model.Thinking}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := resolved.Provider.Complete(ctx, req)
		if err != nil {
			return llm.Response{}, assistanterrors.LLM(w.GlobalID, sectionName, "provider call failed", err)
		}
		if len(resp.ToolCalls) == 0 || len(toolDefs) == 0 {
			return resp, nil
		}

		req.Messages = append(req.Messages, llm.Message{Role: llm.RoleAssistant, Text: resp.Text, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			result, err := e.deps.Tools.Call(ctx, call)
			if err != nil {
				result = llm.ToolResult{ToolCallID: call.ID, IsError: true, Content: err.Error()}
			}
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleToolResult, ToolResult: &result})
		}
	}
	return llm.Response{}, assistanterrors.LLM(w.GlobalID, sectionName, "exceeded max tool-calling rounds", nil)
}

// enabledToolServerNames turns a ToolSelection into the concrete list of
// configured server names it allows (expanding the `all` special case
// against the settings registry), using sliceutil to dedup.
func enabledToolServerNames(sel directive.ToolSelection, s settings.Settings) []string {
	var names []string
	for name := range s.Tools {
		if sel.Allows(name) && !sliceutil.Contains(names, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// routeOutput implements §4.6 step 7.
func (e *Engine) routeOutput(w workflow.Workflow, sectionName string, out *directive.OutputTarget, headerPattern, content, vaultRoot string, referenceTime time.Time, buffers *buffer.Store, createdOutputs map[string]bool) error {
	if out == nil {
		return nil
	}

	switch out.Scheme {
	case directive.SchemeVariable:
		mode := buffer.Replace
		if out.WriteMode == directive.WriteAppend {
			mode = buffer.Append
		}
		buffers.Put(out.Target, content, mode, nil)
		return nil

	case directive.SchemeFile:
		relPath, err := pattern.ResolveSingle(out.Target, referenceTime, w.WeekStartDay)
		if err != nil {
			return assistanterrors.PatternResolution(w.GlobalID, sectionName, out.Target, err.Error())
		}
		if out.WriteMode == directive.WriteNew {
			relPath = nextNewPath(w.Vault, relPath, e.deps.Writer)
		}

		final := content
		if !createdOutputs[relPath] && headerPattern != "" {
			header, err := pattern.ResolveSingle(headerPattern, referenceTime, w.WeekStartDay)
			if err != nil {
				return assistanterrors.PatternResolution(w.GlobalID, sectionName, headerPattern, err.Error())
			}
			final = "# " + header + "\n\n" + content
		}

		if out.WriteMode == directive.WriteAppend {
			existing, _ := e.deps.Writer.Read(w.Vault, relPath)
			if existing != "" {
				final = existing + "\n" + final
			}
		}

		if err := e.deps.Writer.Write(w.Vault, relPath, final); err != nil {
			return assistanterrors.IO(w.GlobalID, fmt.Sprintf("writing output %s", relPath), err)
		}
		createdOutputs[relPath] = true
		return nil
	}
	return nil
}

// nextNewPath appends the smallest-unused zero-padded "_NNN" suffix, per
// §6's "new mode produces files suffixed _NNN."
func nextNewPath(vaultName, relPath string, w Writer) string {
	ext := filepath.Ext(relPath)
	base := strings.TrimSuffix(relPath, ext)
	for n := 1; n < 1000; n++ {
		candidate := fmt.Sprintf("%s_%03d%s", base, n, ext)
		if _, err := w.Read(vaultName, candidate); err != nil {
			return candidate
		}
	}
	return relPath
}

// contentHash matches pkg/pattern's own file-hashing (plain sha256 of raw
// bytes, not the canonicalized form workflow.SourceHash uses) so the
// file-state tracker's stored hash can be compared directly against what
// pattern.ResolveMany computed when it walked {pending} candidates.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
