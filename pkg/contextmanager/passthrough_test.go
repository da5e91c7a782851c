package contextmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodgybadger/assistantmd/pkg/directive"
	"github.com/dodgybadger/assistantmd/pkg/llm"
)

func TestPassthroughSlice_AllReturnsEverything(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Text: "hi"},
		{Role: llm.RoleAssistant, Text: "hello"},
		{Role: llm.RoleUser, Text: "again"},
		{Role: llm.RoleAssistant, Text: "ok"},
	}
	out := PassthroughSlice(history, directive.PassthroughRuns{All: true})
	assert.Equal(t, history, out)
}

func TestPassthroughSlice_IntegerKeepsLastNTurnsOnly(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Text: "turn1"},
		{Role: llm.RoleAssistant, Text: "reply1"},
		{Role: llm.RoleUser, Text: "turn2"},
		{Role: llm.RoleAssistant, Text: "reply2"},
		{Role: llm.RoleUser, Text: "turn3"},
		{Role: llm.RoleAssistant, Text: "reply3"},
	}
	out := PassthroughSlice(history, directive.PassthroughRuns{Count: 1})
	require.Len(t, out, 2)
	assert.Equal(t, "turn3", out[0].Text)
	assert.Equal(t, "reply3", out[1].Text)
}

func TestPassthroughSlice_NeverSplitsToolCallResultPair(t *testing.T) {
	call := llm.ToolCall{ID: "1", Name: "search"}
	result := llm.ToolResult{ToolCallID: "1", Content: "found it"}
	history := []llm.Message{
		{Role: llm.RoleUser, Text: "find x"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{call}},
		{Role: llm.RoleToolResult, ToolResult: &result},
		{Role: llm.RoleAssistant, Text: "x is here"},
	}
	out := PassthroughSlice(history, directive.PassthroughRuns{Count: 1})
	require.Len(t, out, 4)
	assert.Equal(t, llm.RoleToolResult, out[2].Role)
}

func TestPassthroughSlice_ZeroCountReturnsNothing(t *testing.T) {
	history := []llm.Message{{Role: llm.RoleUser, Text: "hi"}}
	out := PassthroughSlice(history, directive.PassthroughRuns{Count: 0})
	assert.Empty(t, out)
}
