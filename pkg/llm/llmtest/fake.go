// Package llmtest provides a deterministic echo Provider for exercising the
// step engine and Context Manager without a network call, matching §4.6's
// idempotence requirement: "tests use a deterministic echo model."
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dodgybadger/assistantmd/pkg/llm"
)

// EchoProvider deterministically derives its response from the last user
// message (and, optionally, a fixed canned response per call index), so
// repeated runs against identical input produce identical output.
type EchoProvider struct {
	// Responses, if set, is consumed in order (one per Complete/CompleteStream
	// call) instead of echoing. Useful for scripting multi-step scenarios.
	Responses []string

	mu    sync.Mutex
	calls int
}

// Calls returns the number of completions issued so far.
func (p *EchoProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *EchoProvider) next(req llm.Request) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	p.calls++

	if idx < len(p.Responses) {
		return p.Responses[idx]
	}

	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			last = req.Messages[i].Text
			break
		}
	}
	return fmt.Sprintf("echo: %s", strings.TrimSpace(last))
}

func (p *EchoProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Text: p.next(req), StopReason: "end_turn"}, nil
}

func (p *EchoProvider) CompleteStream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	text := p.next(req)
	out := make(chan llm.StreamChunk, 2)
	out <- llm.StreamChunk{TextDelta: text}
	resp := llm.Response{Text: text, StopReason: "end_turn"}
	out <- llm.StreamChunk{Done: true, Response: &resp}
	close(out)
	return out, nil
}
