package contextmanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodgybadger/assistantmd/pkg/llm"
	"github.com/dodgybadger/assistantmd/pkg/llm/llmtest"
	"github.com/dodgybadger/assistantmd/pkg/store"
	"github.com/dodgybadger/assistantmd/pkg/testutil"
)

type fakeModelResolver struct {
	provider *llmtest.EchoProvider
}

func (f fakeModelResolver) Resolve(alias string) (llm.Resolved, error) {
	return llm.Resolved{Provider: f.provider, ModelID: "fake-model"}, nil
}

type fakeToolResolver struct{}

func (fakeToolResolver) Resolve(ctx context.Context, workflowID, section string, names []string) ([]llm.ToolDefinition, error) {
	return nil, nil
}
func (fakeToolResolver) Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	return llm.ToolResult{}, nil
}

type fakeWriter struct {
	files map[string]string
}

func newFakeWriter() *fakeWriter { return &fakeWriter{files: map[string]string{}} }

func (w *fakeWriter) Read(vault, relPath string) (string, error) {
	return w.files[vault+"/"+relPath], nil
}
func (w *fakeWriter) Write(vault, relPath, content string) error {
	w.files[vault+"/"+relPath] = content
	return nil
}

func newTestManager(t *testing.T, provider *llmtest.EchoProvider) *Manager {
	t.Helper()
	db, err := store.Open(testutil.TempDir(t, "contextmanager-*"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(Deps{
		Store:        NewStore(db),
		Models:       fakeModelResolver{provider: provider},
		Tools:        fakeToolResolver{},
		Writer:       newFakeWriter(),
		DefaultAlias: "default",
	})
}

func TestManager_Run_InjectsCompiledSummaryBeforePassthrough(t *testing.T) {
	provider := &llmtest.EchoProvider{Responses: []string{"a concise digest"}}
	m := newTestManager(t, provider)

	tmpl, err := ParseTemplate("tmpl.md", "## Digest\nSummarize things.\n")
	require.NoError(t, err)

	history := []llm.Message{
		{Role: llm.RoleUser, Text: "hello"},
		{Role: llm.RoleAssistant, Text: "hi there"},
	}

	result, err := m.Run(context.Background(), TurnInput{
		SessionID: "sess-1", Vault: "vault1", Template: tmpl,
		History: history, LatestUserInput: "what's new", ReferenceTime: time.Now(),
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Messages)
	assert.Equal(t, llm.RoleSystem, result.Messages[0].Role)
	assert.Contains(t, result.Messages[0].Text, "a concise digest")
	assert.Equal(t, history, result.Messages[1:])
}

func TestManager_Run_CacheHitSkipsSecondLLMCall(t *testing.T) {
	provider := &llmtest.EchoProvider{Responses: []string{"first summary"}}
	m := newTestManager(t, provider)

	tmpl, err := ParseTemplate("tmpl.md", "## Digest\n@cache 10m\nSummarize things.\n")
	require.NoError(t, err)

	now := time.Now()
	in := TurnInput{SessionID: "sess-2", Vault: "vault1", Template: tmpl, LatestUserInput: "hi", ReferenceTime: now}

	_, err = m.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls())

	_, err = m.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls(), "second run within TTL should reuse the cached summary")
}

func TestManager_Run_TokenThresholdSkipsStepWithNoLLMCall(t *testing.T) {
	provider := &llmtest.EchoProvider{}
	m := newTestManager(t, provider)

	tmpl, err := ParseTemplate("tmpl.md", "## Digest\n@token-threshold 999999\nSummarize things.\n")
	require.NoError(t, err)

	result, err := m.Run(context.Background(), TurnInput{
		SessionID: "sess-3", Vault: "vault1", Template: tmpl, LatestUserInput: "hi", ReferenceTime: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, provider.Calls())
	assert.Empty(t, result.Messages)
}
