package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodgybadger/assistantmd/pkg/settings"
)

func TestRegistryResolveUnknownAlias(t *testing.T) {
	r := NewRegistry(settings.DefaultSettings(), settings.Secrets{})
	_, err := r.Resolve("fast")
	assert.Error(t, err)
}

func TestRegistryResolveMissingSecret(t *testing.T) {
	s := settings.DefaultSettings()
	s.Models["fast"] = settings.ModelAlias{Provider: "anthropic", Model: "claude-haiku", SecretName: "ANTHROPIC_API_KEY"}
	r := NewRegistry(s, settings.Secrets{})
	_, err := r.Resolve("fast")
	assert.ErrorContains(t, err, "configure")
}

func TestRegistryResolveCachesProvider(t *testing.T) {
	s := settings.DefaultSettings()
	s.Models["fast"] = settings.ModelAlias{Provider: "anthropic", Model: "claude-haiku", SecretName: "ANTHROPIC_API_KEY"}
	r := NewRegistry(s, settings.Secrets{"ANTHROPIC_API_KEY": "sk-test"})

	a, err := r.Resolve("fast")
	require.NoError(t, err)
	b, err := r.Resolve("fast")
	require.NoError(t, err)
	assert.Same(t, a.Provider, b.Provider)
	assert.Equal(t, "claude-haiku", a.ModelID)
}
