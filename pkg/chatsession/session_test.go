package chatsession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodgybadger/assistantmd/pkg/llm"
)

func TestRenderParse_RoundTrip(t *testing.T) {
	s := New("sess-123", "myvault", "claude-sonnet", "daily-context")
	ts := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	s.Append(llm.RoleUser, "what's on my plate today?", ts)
	s.Append(llm.RoleAssistant, "Three tasks are due.", ts.Add(time.Second))

	rendered := Render(s)
	assert.Contains(t, rendered, "## User (2026-02-10T09:00:00Z)")
	assert.Contains(t, rendered, "Three tasks are due.")

	parsed, err := Parse(rendered)
	require.NoError(t, err)
	assert.Equal(t, "sess-123", parsed.SessionID)
	assert.Equal(t, "myvault", parsed.Vault)
	assert.Equal(t, "claude-sonnet", parsed.ModelAlias)
	assert.Equal(t, "daily-context", parsed.TemplateName)
	require.Len(t, parsed.Messages, 2)
	assert.Equal(t, llm.RoleUser, parsed.Messages[0].Role)
	assert.Equal(t, "what's on my plate today?", parsed.Messages[0].Text)
	assert.Equal(t, llm.RoleAssistant, parsed.Messages[1].Role)
	assert.True(t, parsed.Messages[1].Timestamp.Equal(ts.Add(time.Second)))
}

func TestTranscriptPath_UnderscorePrefixedFolder(t *testing.T) {
	assert.Equal(t, "AssistantMD/_chat-sessions/abc.md", TranscriptPath("abc"))
}

type fakeWriter struct{ files map[string]string }

func (w *fakeWriter) Read(vault, relPath string) (string, error) {
	v, ok := w.files[vault+"/"+relPath]
	if !ok {
		return "", &notFoundError{}
	}
	return v, nil
}
func (w *fakeWriter) Write(vault, relPath, content string) error {
	w.files[vault+"/"+relPath] = content
	return nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "not found" }

func TestPersistAndLoad_RoundTrip(t *testing.T) {
	w := &fakeWriter{files: map[string]string{}}
	s := New("sess-1", "vault1", "alias", "tmpl")
	s.Append(llm.RoleUser, "hi", time.Now())

	require.NoError(t, Persist(w, s))

	loaded, err := Load(w, "vault1", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, s.SessionID, loaded.SessionID)
	require.Len(t, loaded.Messages, 1)
	assert.Equal(t, "hi", loaded.Messages[0].Text)
}
