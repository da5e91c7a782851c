// Package tools connects to the MCP servers named in settings.yaml's tools
// registry and exposes their tools to the Step Workflow Engine and Context
// Manager as llm.ToolDefinition/ToolCall values, grounded on the teacher
// pack's MCP gateway client (pkg/awmg/gateway.go) and its retry wrapper
// (pkg/cli/mcp_connect_retry.go).
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dodgybadger/assistantmd/pkg/assistanterrors"
	"github.com/dodgybadger/assistantmd/pkg/llm"
	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/settings"
)

var log = logger.New("tools:registry")

const connectTimeout = 30 * time.Second

// session pairs a live MCP client session with the tool names it exposes,
// qualified as "<server>.<tool>" so two servers can't collide.
type session struct {
	server  string
	client  *mcp.ClientSession
	tools   map[string]mcp.Tool // keyed by unqualified tool name
}

// Registry lazily connects to configured MCP servers the first time one of
// their tools is requested by a `@tools` directive, and reuses the
// connection for the lifetime of the process.
type Registry struct {
	settings settings.Settings
	secrets  settings.Secrets

	mu       sync.Mutex
	sessions map[string]*session // keyed by server name
}

// NewRegistry builds a Registry over the process's loaded settings/secrets.
func NewRegistry(s settings.Settings, secrets settings.Secrets) *Registry {
	return &Registry{settings: s, secrets: secrets, sessions: map[string]*session{}}
}

// QualifiedName joins a server name and its tool name into the identifier
// surfaced to the LLM and expected back on a ToolCall.
func QualifiedName(server, tool string) string {
	return server + "." + tool
}

// Resolve connects (if not already connected) to every server named in
// names and returns the union of their tools as llm.ToolDefinition values,
// filtering out servers whose secret isn't configured per §4.6 step 4.
// workflowID/section are carried only for error attribution.
func (r *Registry) Resolve(ctx context.Context, workflowID, section string, names []string) ([]llm.ToolDefinition, error) {
	var defs []llm.ToolDefinition
	for _, name := range names {
		entry, ok := r.settings.Tools[name]
		if !ok {
			return nil, assistanterrors.Configuration(workflowID, section, fmt.Sprintf("unknown tool server %q", name))
		}
		if entry.SecretName != "" {
			if _, ok := r.secrets[entry.SecretName]; !ok {
				log.Printf("skipping tool server %s: secret %s not configured", name, entry.SecretName)
				continue
			}
		}

		sess, err := r.connect(ctx, name, entry)
		if err != nil {
			return nil, assistanterrors.Configuration(workflowID, section, fmt.Sprintf("connecting to tool server %q: %v", name, err))
		}
		for toolName, tool := range sess.tools {
			defs = append(defs, llm.ToolDefinition{
				Name:        QualifiedName(name, toolName),
				Description: tool.Description,
				InputSchema: schemaToMap(tool.InputSchema),
			})
		}
	}
	return defs, nil
}

// Call dispatches a qualified tool call (as produced from a ToolDefinition
// returned by Resolve) to its owning MCP server.
func (r *Registry) Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	server, toolName, ok := strings.Cut(call.Name, ".")
	if !ok {
		return llm.ToolResult{}, fmt.Errorf("tools: malformed qualified tool name %q", call.Name)
	}

	r.mu.Lock()
	sess, ok := r.sessions[server]
	r.mu.Unlock()
	if !ok {
		return llm.ToolResult{}, fmt.Errorf("tools: server %q is not connected", server)
	}

	result, err := sess.client.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: call.Input})
	if err != nil {
		return llm.ToolResult{ToolCallID: call.ID, IsError: true, Content: err.Error()}, nil
	}

	var text strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(tc.Text)
		}
	}
	return llm.ToolResult{ToolCallID: call.ID, Content: text.String(), IsError: result.IsError}, nil
}

func (r *Registry) connect(ctx context.Context, name string, entry settings.ToolEntry) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[name]; ok {
		return sess, nil
	}

	transport, err := buildTransport(entry, r.secrets)
	if err != nil {
		return nil, err
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "assistantmd-" + name, Version: "1"}, nil)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientSession, err := connectWithRetry(connectCtx, client, transport, nil)
	if err != nil {
		return nil, err
	}

	listCtx, cancelList := context.WithTimeout(ctx, connectTimeout)
	defer cancelList()

	result, err := clientSession.ListTools(listCtx, &mcp.ListToolsParams{})
	if err != nil {
		clientSession.Close()
		return nil, fmt.Errorf("listing tools from %q: %w", name, err)
	}

	toolMap := make(map[string]mcp.Tool, len(result.Tools))
	for _, t := range result.Tools {
		toolMap[t.Name] = *t
	}

	sess := &session{server: name, client: clientSession, tools: toolMap}
	r.sessions[name] = sess
	log.Printf("connected to tool server %s, %d tools", name, len(toolMap))
	return sess, nil
}

func buildTransport(entry settings.ToolEntry, secrets settings.Secrets) (mcp.Transport, error) {
	switch {
	case entry.URL != "":
		return &mcp.StreamableClientTransport{Endpoint: entry.URL}, nil
	case entry.Command != "":
		cmd := exec.Command(entry.Command, entry.Args...)
		cmd.Env = os.Environ()
		for k, v := range entry.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
		if entry.SecretName != "" {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", entry.SecretName, secrets[entry.SecretName]))
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	default:
		return nil, errors.New("tool entry must specify command or url")
	}
}

// connectWithRetry mirrors the teacher pack's exponential backoff (1s, 2s),
// retrying only transient network failures.
func connectWithRetry(ctx context.Context, client *mcp.Client, transport mcp.Transport, opts *mcp.ClientSessionOptions) (*mcp.ClientSession, error) {
	const maxAttempts = 3
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		sess, err := client.Connect(ctx, transport, opts)
		if err == nil {
			return sess, nil
		}
		lastErr = err
		if !isTransientError(err) {
			return nil, err
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(1<<attempt)):
		}
	}
	return nil, fmt.Errorf("tools: failed to connect after %d attempts: %w", maxAttempts, lastErr)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ECONNRESET)
}

func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}
