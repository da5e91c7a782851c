package chatexecutor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/buffer"
	"github.com/dodgybadger/assistantmd/pkg/chatsession"
	"github.com/dodgybadger/assistantmd/pkg/contextmanager"
	"github.com/dodgybadger/assistantmd/pkg/llm"
)

const maxToolRounds = 8

// ModelResolver resolves the session's `model_alias` to a ready-to-call
// provider, matching stepengine.ModelResolver/contextmanager.ModelResolver.
type ModelResolver interface {
	Resolve(alias string) (llm.Resolved, error)
}

// ToolResolver resolves/dispatches tools for the chat agent itself (as
// opposed to the Context Manager's own, independently configured tools).
type ToolResolver interface {
	Resolve(ctx context.Context, workflowID, section string, names []string) ([]llm.ToolDefinition, error)
	Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error)
}

// Deps are the Executor's collaborators.
type Deps struct {
	DataRoot   string
	SystemRoot string
	Models     ModelResolver
	Tools      ToolResolver
	Context    *contextmanager.Manager
	Transcript chatsession.Writer
}

// Executor assembles a chat turn: it loads (or starts) a session, runs the
// turn's Context Manager template, invokes the chat agent over the
// reshaped history, and persists the full (untruncated) transcript.
type Executor struct {
	deps Deps
}

// New builds an Executor over deps.
func New(deps Deps) *Executor {
	return &Executor{deps: deps}
}

// TurnRequest is one inbound chat message.
type TurnRequest struct {
	SessionID       string
	Vault           string
	ModelAlias      string // used only when starting a brand-new session
	TemplateName    string // used only when starting a brand-new session
	UserInput       string
	ToolServerNames []string
	ReferenceTime   time.Time
	WeekStartDay    time.Weekday
	Buffers         *buffer.Store // session-scoped variable store shared with the Context Manager
}

// TurnReply is the assistant's reply plus the session it was appended to.
type TurnReply struct {
	Reply   string
	Session chatsession.Session
}

// Turn runs one full chat turn (§4.10): load-or-create the session, run
// the Context Manager, invoke the chat agent, append both sides of the
// turn to the session, and persist the transcript.
func (e *Executor) Turn(ctx context.Context, req TurnRequest) (TurnReply, error) {
	session, err := e.loadOrCreateSession(req)
	if err != nil {
		return TurnReply{}, err
	}

	vaultRoot := filepath.Join(e.deps.DataRoot, session.Vault)
	tmpl, err := LoadTemplate(vaultRoot, e.deps.SystemRoot, session.TemplateName)
	if err != nil {
		// No context template configured for this session: proceed with
		// the raw message history and no compiled summary (§4.7's manager
		// failures are fail-open; an absent template degrades the same way).
		tmpl = contextmanager.Template{}
	}

	cmResult, err := e.deps.Context.Run(ctx, contextmanager.TurnInput{
		SessionID:       session.SessionID,
		Vault:           session.Vault,
		VaultRoot:       vaultRoot,
		Template:        tmpl,
		History:         session.Messages,
		LatestUserInput: req.UserInput,
		ReferenceTime:   req.ReferenceTime,
		WeekStartDay:    req.WeekStartDay,
		Buffers:         req.Buffers,
	})
	if err != nil {
		return TurnReply{}, err
	}

	resolved, err := e.deps.Models.Resolve(session.ModelAlias)
	if err != nil {
		return TurnReply{}, fmt.Errorf("chatexecutor: resolving model %q: %w", session.ModelAlias, err)
	}

	var toolDefs []llm.ToolDefinition
	if len(req.ToolServerNames) > 0 && e.deps.Tools != nil {
		toolDefs, err = e.deps.Tools.Resolve(ctx, session.SessionID, "chat", req.ToolServerNames)
		if err != nil {
			return TurnReply{}, err
		}
	}

	messages := append(append([]llm.Message{}, cmResult.Messages...), llm.Message{Role: llm.RoleUser, Text: req.UserInput, Timestamp: req.ReferenceTime})
	llmReq := llm.Request{
		ModelID:  resolved.ModelID,
		System:   cmResult.ChatInstructions,
		Messages: messages,
		Tools:    toolDefs,
	}

	reply, err := e.runToolLoop(ctx, resolved, llmReq)
	if err != nil {
		return TurnReply{}, err
	}

	session.Append(llm.RoleUser, req.UserInput, req.ReferenceTime)
	session.Append(llm.RoleAssistant, reply, req.ReferenceTime)

	if err := chatsession.Persist(e.deps.Transcript, session); err != nil {
		return TurnReply{}, fmt.Errorf("chatexecutor: persisting transcript: %w", err)
	}

	return TurnReply{Reply: reply, Session: session}, nil
}

// runToolLoop mirrors stepengine's bounded tool-calling loop so a chat turn
// can drive the same tool servers a workflow step does.
func (e *Executor) runToolLoop(ctx context.Context, resolved llm.Resolved, req llm.Request) (string, error) {
	for round := 0; round < maxToolRounds; round++ {
		resp, err := resolved.Provider.Complete(ctx, req)
		if err != nil {
			return "", fmt.Errorf("chatexecutor: provider call failed: %w", err)
		}
		if len(resp.ToolCalls) == 0 || len(req.Tools) == 0 || e.deps.Tools == nil {
			return resp.Text, nil
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
	return "", fmt.Errorf("chatexecutor: exceeded max tool-calling rounds")
}

func (e *Executor) loadOrCreateSession(req TurnRequest) (chatsession.Session, error) {
	session, err := chatsession.Load(e.deps.Transcript, req.Vault, req.SessionID)
	if err == nil {
		return session, nil
	}
	if !chatsession.IsNotExist(err) {
		return chatsession.Session{}, fmt.Errorf("chatexecutor: loading session %s: %w", req.SessionID, err)
	}
	return chatsession.New(req.SessionID, req.Vault, req.ModelAlias, req.TemplateName), nil
}
