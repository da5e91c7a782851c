package llm

import (
	"fmt"
	"sync"

	"github.com/dodgybadger/assistantmd/pkg/settings"
)

// Registry resolves a `@model <alias>` directive into a ready-to-call
// Provider + concrete model id, caching one client per (provider, secret)
// pair so repeated step/section invocations reuse a connection (§4.6 step
// 4, §4.7 step 3c).
type Registry struct {
	settings settings.Settings
	secrets  settings.Secrets

	mu        sync.Mutex
	providers map[string]Provider
}

// NewRegistry builds a Registry over the process's loaded settings/secrets.
func NewRegistry(s settings.Settings, secrets settings.Secrets) *Registry {
	return &Registry{settings: s, secrets: secrets, providers: map[string]Provider{}}
}

// Resolved is a model alias resolved to a live Provider and its concrete model id.
type Resolved struct {
	Provider Provider
	ModelID  string
}

// Resolve looks up alias in the settings' model registry, confirms its
// provider's secret is configured, and returns a cached (or freshly built)
// Provider bound to that secret. Failures are ConfigurationErrors at the
// call site (§4.2, §7): callers wrap with assistanterrors.Configuration.
func (r *Registry) Resolve(alias string) (Resolved, error) {
	model, err := r.settings.ResolveModel(alias, r.secrets)
	if err != nil {
		return Resolved{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := model.Provider + ":" + model.SecretName
	if p, ok := r.providers[key]; ok {
		return Resolved{Provider: p, ModelID: model.Model}, nil
	}

	secret := r.secrets[model.SecretName]
	p, err := newProvider(model.Provider, secret)
	if err != nil {
		return Resolved{}, err
	}
	r.providers[key] = p
	return Resolved{Provider: p, ModelID: model.Model}, nil
}

func newProvider(provider, secret string) (Provider, error) {
	switch provider {
	case "anthropic":
		return NewAnthropicProvider(secret), nil
	case "openai":
		return NewOpenAIProvider(secret, ""), nil
	case "openai-compatible":
		return NewOpenAIProvider(secret, ""), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", provider)
	}
}
