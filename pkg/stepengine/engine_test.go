package stepengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodgybadger/assistantmd/pkg/activitylog"
	"github.com/dodgybadger/assistantmd/pkg/filestate"
	"github.com/dodgybadger/assistantmd/pkg/llm"
	"github.com/dodgybadger/assistantmd/pkg/llm/llmtest"
	"github.com/dodgybadger/assistantmd/pkg/settings"
	"github.com/dodgybadger/assistantmd/pkg/store"
	"github.com/dodgybadger/assistantmd/pkg/testutil"
	"github.com/dodgybadger/assistantmd/pkg/vault"
	"github.com/dodgybadger/assistantmd/pkg/vaultio"
	"github.com/dodgybadger/assistantmd/pkg/workflow"
)

// fakeModels resolves every alias to the same echo provider, regardless of
// the alias name, so tests never touch a real provider SDK.
type fakeModels struct {
	provider *llmtest.EchoProvider
}

func (f *fakeModels) Resolve(alias string) (llm.Resolved, error) {
	return llm.Resolved{Provider: f.provider, ModelID: "echo-model"}, nil
}

// noTools reports zero available tools for every request; sections that
// don't use @tools never call it.
type noTools struct{}

func (noTools) Resolve(ctx context.Context, workflowID, section string, names []string) ([]llm.ToolDefinition, error) {
	return nil, nil
}
func (noTools) Call(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
	return llm.ToolResult{}, nil
}

func newTestEngine(t *testing.T, dataRoot string) (*Engine, *vault.Cache, *llmtest.EchoProvider) {
	t.Helper()
	db, err := store.Open(testutil.TempDir(t, "stepengine-*"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	activity, err := activitylog.Open(testutil.TempDir(t, "stepengine-*"))
	require.NoError(t, err)
	t.Cleanup(func() { activity.Close() })

	cache := vault.NewCache()
	echo := &llmtest.EchoProvider{}

	engine := New(Deps{
		Vault:     cache,
		DataRoot:  dataRoot,
		Models:    &fakeModels{provider: echo},
		Tools:     noTools{},
		FileState: filestate.New(db),
		Activity:  activity,
		Writer:    vaultio.New(dataRoot),
		Settings:  settings.DefaultSettings(),
	})
	return engine, cache, echo
}

func putWorkflow(t *testing.T, cache *vault.Cache, dataRoot, vaultName, relPath, content string) workflow.Workflow {
	t.Helper()
	require.NoError(t, vaultio.New(dataRoot).Write(vaultName, relPath, content))
	_, err := cache.Rescan(dataRoot)
	require.NoError(t, err)
	w, ok := cache.Get(vaultName + "/" + trimExt(relPath))
	require.True(t, ok)
	return w
}

func trimExt(p string) string {
	if len(p) > 3 && p[len(p)-3:] == ".md" {
		return p[:len(p)-3]
	}
	return p
}

func TestRunSimpleStepInvokesEchoAndWritesOutput(t *testing.T) {
	dataRoot := t.TempDir()
	engine, cache, _ := newTestEngine(t, dataRoot)

	content := "---\nschedule:\n---\n## Greet\n@model fast\n@output file: greeting\n\nSay hello.\n"
	w := putWorkflow(t, cache, dataRoot, "vault1", "Workflows/greet.md", content)

	result, err := engine.Run(context.Background(), w.GlobalID, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.NoError(t, result.Steps[0].Err)
	assert.False(t, result.Steps[0].Skipped)

	out, err := vaultio.New(dataRoot).Read("vault1", "greeting.md")
	require.NoError(t, err)
	assert.Contains(t, out, "echo:")
}

func TestRunSkipsStepWhenRunOnDoesNotMatch(t *testing.T) {
	dataRoot := t.TempDir()
	engine, cache, echo := newTestEngine(t, dataRoot)

	content := "---\n---\n## Weekly\n@model fast\n@run-on monday\n@output file: digest\n\nSummarize.\n"
	w := putWorkflow(t, cache, dataRoot, "vault1", "Workflows/weekly.md", content)

	// 2026-07-31 is a Friday.
	result, err := engine.Run(context.Background(), w.GlobalID, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.True(t, result.Steps[0].Skipped)
	assert.Equal(t, 0, echo.Calls())
}

func TestRunSkipsStepWhenRequiredInputMissing(t *testing.T) {
	dataRoot := t.TempDir()
	engine, cache, echo := newTestEngine(t, dataRoot)

	content := "---\n---\n## Digest\n@model fast\n@input file: journal/{today} (required)\n@output file: digest\n\nSummarize today's entry.\n"
	w := putWorkflow(t, cache, dataRoot, "vault1", "Workflows/digest.md", content)

	result, err := engine.Run(context.Background(), w.GlobalID, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Steps, 1)
	assert.True(t, result.Steps[0].Skipped)
	assert.Equal(t, 0, echo.Calls())
}

func TestRunAppendsHeaderOnlyOnFirstWrite(t *testing.T) {
	dataRoot := t.TempDir()
	engine, cache, _ := newTestEngine(t, dataRoot)

	content := "---\n---\n## One\n@model fast\n@header Daily Log\n@output file: log\n@write-mode append\n\nFirst entry.\n\n## Two\n@model fast\n@header Daily Log\n@output file: log\n@write-mode append\n\nSecond entry.\n"
	w := putWorkflow(t, cache, dataRoot, "vault1", "Workflows/log.md", content)

	_, err := engine.Run(context.Background(), w.GlobalID, time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	out, err := vaultio.New(dataRoot).Read("vault1", "log.md")
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(out, "# Daily Log"))
}

func TestRunWriteModeNewAppliesHeaderEveryTime(t *testing.T) {
	dataRoot := t.TempDir()
	engine, cache, _ := newTestEngine(t, dataRoot)

	content := "---\n---\n## Entry\n@model fast\n@header Journal\n@output file: journal/2026-02-10\n@write-mode new\n\nWrite an entry.\n"
	w := putWorkflow(t, cache, dataRoot, "vault1", "Workflows/journal.md", content)

	ref := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := engine.Run(context.Background(), w.GlobalID, ref)
		require.NoError(t, err)
	}

	writer := vaultio.New(dataRoot)
	for _, suffix := range []string{"_001", "_002", "_003"} {
		out, err := writer.Read("vault1", "journal/2026-02-10"+suffix+".md")
		require.NoError(t, err)
		assert.Equal(t, 1, countOccurrences(out, "# Journal"))
	}
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}
