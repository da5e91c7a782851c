// Package llm implements the LLM invocation contract (§4.10 of spec.md's
// system overview / §2 DOMAIN STACK): model/tool resolution from
// pkg/settings, and a uniform Provider interface wrapping the Anthropic and
// OpenAI-compatible SDKs so the step engine and Context Manager never see
// a provider-specific type.
package llm

import (
	"context"
	"time"
)

// Role is a chat message's role, matching §3's ChatSession.messages shape.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleToolCall  Role = "tool-call"
	RoleToolResult Role = "tool-result"
)

// ToolDefinition describes one tool exposed to a model call, resolved from
// the `@tools` directive against pkg/settings' tool registry.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolCall is a model-issued invocation of one ToolDefinition.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult is the outcome of executing a ToolCall. Structured holds
// multimodal content blocks; tools.Registry.Call fills only Content (the
// tool's text parts, newline-joined) and never sets Structured.
type ToolResult struct {
	ToolCallID string
	Content    string
	Structured []ContentBlock
	IsError    bool
}

// ContentBlock is one piece of (possibly multimodal) message content.
type ContentBlock struct {
	Type     string // "text" or "image"
	Text     string
	MimeType string
	Data     []byte
}

// Message is one turn in a conversation sent to or received from a provider.
type Message struct {
	Role       Role
	Text       string
	ToolCalls  []ToolCall
	ToolResult *ToolResult
	Timestamp  time.Time
}

// Request is one model invocation.
type Request struct {
	ModelID     string
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	Thinking    bool
	MaxTokens   int
	Temperature float64
}

// StreamChunk is one incremental piece of a streaming response.
type StreamChunk struct {
	TextDelta string
	Done      bool
	Response  *Response // set on the final chunk (Done == true)
}

// Response is a provider's completed reply to a Request.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Provider is implemented by each concrete LLM backend (§2: Anthropic and
// OpenAI-compatible provider clients).
type Provider interface {
	// Complete blocks until the full response is available.
	Complete(ctx context.Context, req Request) (Response, error)
	// CompleteStream returns a channel of incremental chunks, closed after
	// the final (Done==true) chunk. Nothing in this module calls it: the
	// step engine, context manager, and chat executor all use Complete.
	CompleteStream(ctx context.Context, req Request) (<-chan StreamChunk, error)
}
