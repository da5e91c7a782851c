package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DefaultAPITimeoutSeconds != 120 {
		t.Errorf("expected default timeout 120, got %d", s.DefaultAPITimeoutSeconds)
	}
	if s.PassthroughRuns != "all" {
		t.Errorf("expected default passthrough_runs 'all', got %s", s.PassthroughRuns)
	}
	if s.WeekStartDay != "monday" {
		t.Errorf("expected default week_start_day 'monday', got %s", s.WeekStartDay)
	}
}

func TestLoad_ParsesModelsAndTools(t *testing.T) {
	dir := t.TempDir()
	content := `
default_api_timeout: 90
passthrough_runs: "10"
week_start_day: sunday
models:
  claude:
    provider: anthropic
    model: claude-sonnet-4
    secret_name: ANTHROPIC_API_KEY
tools:
  web_search:
    description: "search the web"
    secret_name: SEARCH_API_KEY
`
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DefaultAPITimeoutSeconds != 90 {
		t.Errorf("expected timeout 90, got %d", s.DefaultAPITimeoutSeconds)
	}
	model, ok := s.Models["claude"]
	if !ok {
		t.Fatal("expected 'claude' model alias to be parsed")
	}
	if model.Provider != "anthropic" || model.SecretName != "ANTHROPIC_API_KEY" {
		t.Errorf("unexpected model alias: %+v", model)
	}
	if _, ok := s.Tools["web_search"]; !ok {
		t.Fatal("expected 'web_search' tool to be parsed")
	}
}

func TestLoadSecrets_MissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	secrets, err := LoadSecrets(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(secrets) != 0 {
		t.Errorf("expected empty secrets map, got: %+v", secrets)
	}
}

func TestResolveModel_UnknownAlias(t *testing.T) {
	s := DefaultSettings()
	_, err := s.ResolveModel("nonexistent", Secrets{})
	if err == nil {
		t.Fatal("expected an error for unknown alias")
	}
}

func TestResolveModel_MissingSecret(t *testing.T) {
	s := DefaultSettings()
	s.Models["claude"] = ModelAlias{Provider: "anthropic", Model: "claude-sonnet-4", SecretName: "ANTHROPIC_API_KEY"}
	_, err := s.ResolveModel("claude", Secrets{})
	if err == nil {
		t.Fatal("expected a 'configure <secret>' error")
	}
}

func TestResolveModel_Success(t *testing.T) {
	s := DefaultSettings()
	s.Models["claude"] = ModelAlias{Provider: "anthropic", Model: "claude-sonnet-4", SecretName: "ANTHROPIC_API_KEY"}
	secrets := Secrets{"ANTHROPIC_API_KEY": "sk-test"}
	m, err := s.ResolveModel("claude", secrets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Model != "claude-sonnet-4" {
		t.Errorf("unexpected model: %+v", m)
	}
}

func TestToolAvailable(t *testing.T) {
	s := DefaultSettings()
	s.Tools["web_search"] = ToolEntry{SecretName: "SEARCH_API_KEY"}
	s.Tools["free_tool"] = ToolEntry{}

	if s.ToolAvailable("web_search", Secrets{}) {
		t.Error("expected web_search unavailable without its secret")
	}
	if !s.ToolAvailable("web_search", Secrets{"SEARCH_API_KEY": "x"}) {
		t.Error("expected web_search available with its secret")
	}
	if !s.ToolAvailable("free_tool", Secrets{}) {
		t.Error("expected free_tool available with no secret dependency")
	}
	if s.ToolAvailable("unknown", Secrets{}) {
		t.Error("expected unknown tool unavailable")
	}
}
