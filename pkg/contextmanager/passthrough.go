package contextmanager

import (
	"fmt"
	"strings"

	"github.com/dodgybadger/assistantmd/pkg/directive"
	"github.com/dodgybadger/assistantmd/pkg/llm"
)

// turn groups one user message with everything that followed it (the
// assistant's reply and any tool-call/tool-result messages in between),
// so a slice of turns never splits a tool-call/tool-result pair (§8
// invariant 7).
type turn struct {
	messages []llm.Message
}

func groupTurns(history []llm.Message) []turn {
	var turns []turn
	var cur *turn
	for _, msg := range history {
		if msg.Role == llm.RoleUser {
			if cur != nil {
				turns = append(turns, *cur)
			}
			cur = &turn{messages: []llm.Message{msg}}
			continue
		}
		if cur == nil {
			cur = &turn{}
		}
		cur.messages = append(cur.messages, msg)
	}
	if cur != nil {
		turns = append(turns, *cur)
	}
	return turns
}

func flattenTurns(turns []turn) []llm.Message {
	var out []llm.Message
	for _, t := range turns {
		out = append(out, t.messages...)
	}
	return out
}

// PassthroughSlice implements §4.7 step 1: the suffix of chat history
// passed verbatim to the chat agent, `all` meaning no truncation and an
// integer N meaning the last N non-tool user/assistant turns.
func PassthroughSlice(history []llm.Message, p directive.PassthroughRuns) []llm.Message {
	turns := groupTurns(history)
	if p.All {
		return flattenTurns(turns)
	}
	n := p.Count
	if n > len(turns) {
		n = len(turns)
	}
	if n <= 0 {
		return nil
	}
	return flattenTurns(turns[len(turns)-n:])
}

// recentTurnsText renders the last n turns as plain "role: text" lines for
// inclusion in a manager prompt (§4.7 step 3a/3b's "last R non-tool
// turns"): tool-call/tool-result messages are written as a bare
// "tool-call"/"tool-result" line rather than dumped verbatim, since the
// manager only needs to know a tool ran.
func recentTurnsText(history []llm.Message, n int) string {
	if n <= 0 {
		return ""
	}
	turns := groupTurns(history)
	if n > len(turns) {
		n = len(turns)
	}
	recent := turns[len(turns)-n:]

	var b strings.Builder
	for _, t := range recent {
		for _, msg := range t.messages {
			switch msg.Role {
			case llm.RoleToolCall:
				b.WriteString("tool-call\n")
			case llm.RoleToolResult:
				b.WriteString("tool-result\n")
			default:
				fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Text)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
