// Package settings loads system/settings.yaml and system/secrets.yaml: the
// model/tool registries, pattern defaults, and flat secret map every other
// package resolves aliases and credentials against.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("settings:settings")

// ModelAlias maps a short name used in `@model <alias>` directives to a
// concrete provider + model id pair, plus the secret name its provider needs.
type ModelAlias struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	SecretName string `yaml:"secret_name"`
}

// ToolEntry describes a registered MCP server available to `@tools`. Exactly
// one of Command or URL identifies the transport: Command spawns a stdio
// subprocess, URL connects to a streamable-HTTP MCP endpoint.
type ToolEntry struct {
	Description string            `yaml:"description"`
	SecretName  string            `yaml:"secret_name,omitempty"`
	Command     string            `yaml:"command,omitempty"`
	Args        []string          `yaml:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	URL         string            `yaml:"url,omitempty"`
}

// Settings is the parsed content of system/settings.yaml.
type Settings struct {
	DefaultAPITimeoutSeconds int                   `yaml:"default_api_timeout"`
	PassthroughRuns          string                `yaml:"passthrough_runs"`
	WeekStartDay             string                `yaml:"week_start_day"`
	Models                   map[string]ModelAlias `yaml:"models"`
	Tools                    map[string]ToolEntry  `yaml:"tools"`
}

// Secrets is the parsed content of system/secrets.yaml: a flat name->value map.
type Secrets map[string]string

// DefaultSettings returns the settings used when system/settings.yaml is
// absent: a 120s timeout (§5's LLM call default), unlimited passthrough, and
// Monday as the week start (§3's Workflow.week_start_day default).
func DefaultSettings() Settings {
	return Settings{
		DefaultAPITimeoutSeconds: 120,
		PassthroughRuns:          "all",
		WeekStartDay:             "monday",
		Models:                   map[string]ModelAlias{},
		Tools:                    map[string]ToolEntry{},
	}
}

// Load reads system/settings.yaml from systemRoot. A missing file returns
// DefaultSettings with no error: settings are optional scaffolding, not a
// hard bootstrap requirement.
func Load(systemRoot string) (Settings, error) {
	path := filepath.Join(systemRoot, "settings.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("no settings.yaml at %s, using defaults", path)
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: reading %s: %w", path, err)
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: parsing %s: %w", path, err)
	}
	log.Printf("loaded %d model aliases, %d tools from %s", len(s.Models), len(s.Tools), path)
	return s, nil
}

// LoadSecrets reads system/secrets.yaml from systemRoot. A missing file
// returns an empty map with no error.
func LoadSecrets(systemRoot string) (Secrets, error) {
	path := filepath.Join(systemRoot, "secrets.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Secrets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: reading %s: %w", path, err)
	}

	secrets := Secrets{}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("settings: parsing %s: %w", path, err)
	}
	return secrets, nil
}

// ResolveModel looks up an alias and confirms its provider's secret is
// present. Used by the step engine and context manager to turn a
// `@model <alias>` directive into a usable provider configuration; callers
// surface assistanterrors.Configuration when the alias is unknown or the
// secret is absent.
func (s Settings) ResolveModel(alias string, secrets Secrets) (ModelAlias, error) {
	m, ok := s.Models[alias]
	if !ok {
		return ModelAlias{}, fmt.Errorf("unknown model alias %q", alias)
	}
	if m.SecretName != "" {
		if _, ok := secrets[m.SecretName]; !ok {
			return ModelAlias{}, fmt.Errorf("configure %s", m.SecretName)
		}
	}
	return m, nil
}

// ToolAvailable reports whether a tool is registered and, if it declares a
// secret dependency, that the secret is configured.
func (s Settings) ToolAvailable(name string, secrets Secrets) bool {
	t, ok := s.Tools[name]
	if !ok {
		return false
	}
	if t.SecretName == "" {
		return true
	}
	_, ok = secrets[t.SecretName]
	return ok
}
