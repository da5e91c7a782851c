package tools

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodgybadger/assistantmd/pkg/settings"
)

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "search.web_search", QualifiedName("search", "web_search"))
}

func TestResolveUnknownServer(t *testing.T) {
	r := NewRegistry(settings.DefaultSettings(), settings.Secrets{})
	_, err := r.Resolve(context.Background(), "wf1", "Step 1", []string{"search"})
	assert.Error(t, err)
}

func TestResolveSkipsServerWithoutSecret(t *testing.T) {
	s := settings.DefaultSettings()
	s.Tools["search"] = settings.ToolEntry{SecretName: "SEARCH_API_KEY", Command: "search-mcp"}
	r := NewRegistry(s, settings.Secrets{})

	defs, err := r.Resolve(context.Background(), "wf1", "Step 1", []string{"search"})
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestBuildTransportRequiresCommandOrURL(t *testing.T) {
	_, err := buildTransport(settings.ToolEntry{}, settings.Secrets{})
	assert.Error(t, err)
}

func TestBuildTransportURL(t *testing.T) {
	transport, err := buildTransport(settings.ToolEntry{URL: "http://localhost:9000/mcp"}, settings.Secrets{})
	require.NoError(t, err)
	assert.NotNil(t, transport)
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, isTransientError(syscall.ECONNREFUSED))
	assert.True(t, isTransientError(&net.OpError{Err: syscall.ECONNREFUSED}))
	assert.False(t, isTransientError(context.Canceled))
	assert.False(t, isTransientError(errors.New("boom")))
}

func TestSchemaToMapHandlesNil(t *testing.T) {
	m := schemaToMap(nil)
	assert.Empty(t, m)
}
