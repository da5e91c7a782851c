package console

import (
	"strings"
	"testing"
)

func TestFormatError_BasicWithPosition(t *testing.T) {
	err := SourceError{
		Position: SourcePosition{File: "Workflows/daily/standup.md", Line: 4, Column: 1},
		Type:     "error",
		Message:  "unknown directive @outputs",
	}
	out := FormatError(err)
	if !strings.Contains(out, "standup.md:4:1:") {
		t.Errorf("expected location prefix, got: %s", out)
	}
	if !strings.Contains(out, "unknown directive @outputs") {
		t.Errorf("expected message, got: %s", out)
	}
}

func TestFormatError_Warning(t *testing.T) {
	err := SourceError{
		Position: SourcePosition{File: "Workflows/weekly/review.md", Line: 10, Column: 3},
		Type:     "warning",
		Message:  "@cache without @token-threshold has no effect",
	}
	out := FormatError(err)
	if !strings.Contains(out, "warning:") {
		t.Errorf("expected warning prefix, got: %s", out)
	}
}

func TestFormatError_WithContext(t *testing.T) {
	err := SourceError{
		Position: SourcePosition{File: "Workflows/daily/standup.md", Line: 2, Column: 1},
		Type:     "error",
		Message:  "malformed @input pattern",
		Context: []string{
			"---",
			"@input {pending:3}",
			"@model claude",
		},
	}
	out := FormatError(err)
	if !strings.Contains(out, "@input {pending:3}") {
		t.Errorf("expected context line rendered, got: %s", out)
	}
}

func TestFormatError_NoPosition(t *testing.T) {
	err := SourceError{Type: "error", Message: "vault root is not configured"}
	out := FormatError(err)
	if strings.Contains(out, ":0:0:") {
		t.Errorf("did not expect a location prefix when no file is set, got: %s", out)
	}
	if !strings.Contains(out, "vault root is not configured") {
		t.Errorf("expected message, got: %s", out)
	}
}

func TestToRelativePath_KeepsRelative(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"flat relative path", "test.md", "test.md"},
		{"nested relative path", "pkg/console/test.md", "pkg/console/test.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRelativePath(tt.path); got != tt.want {
				t.Errorf("ToRelativePath(%s) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestToRelativePath_AbsoluteBecomesRelative(t *testing.T) {
	result := ToRelativePath("/tmp/assistantmd/test.md")
	if strings.HasPrefix(result, "/") {
		t.Errorf("expected a relative path, got: %s", result)
	}
	if !strings.HasSuffix(result, "test.md") {
		t.Errorf("expected path to end in test.md, got: %s", result)
	}
}

func TestFormatSuccessMessage(t *testing.T) {
	out := FormatSuccessMessage("rescan complete")
	if !strings.Contains(out, "rescan complete") {
		t.Errorf("expected message text, got: %s", out)
	}
	if !strings.Contains(out, "✓") {
		t.Errorf("expected checkmark icon, got: %s", out)
	}
}

func TestFormatInfoMessage(t *testing.T) {
	out := FormatInfoMessage("scanning vault")
	if !strings.Contains(out, "scanning vault") {
		t.Errorf("expected message text, got: %s", out)
	}
	if !strings.Contains(out, "ℹ") {
		t.Errorf("expected info icon, got: %s", out)
	}
}

func TestFormatWarningMessage(t *testing.T) {
	out := FormatWarningMessage("workflow has no trigger")
	if !strings.Contains(out, "workflow has no trigger") {
		t.Errorf("expected message text, got: %s", out)
	}
	if !strings.Contains(out, "⚠") {
		t.Errorf("expected warning icon, got: %s", out)
	}
}

func TestFormatErrorMessage(t *testing.T) {
	out := FormatErrorMessage("scheduler sync failed")
	if !strings.Contains(out, "scheduler sync failed") {
		t.Errorf("expected message text, got: %s", out)
	}
	if !strings.Contains(out, "✗") {
		t.Errorf("expected error icon, got: %s", out)
	}
}

func TestFormatErrorWithSuggestions(t *testing.T) {
	out := FormatErrorWithSuggestions("missing API key", []string{"set ANTHROPIC_API_KEY in secrets.yaml"})
	if !strings.Contains(out, "missing API key") {
		t.Errorf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "Suggestions:") || !strings.Contains(out, "set ANTHROPIC_API_KEY in secrets.yaml") {
		t.Errorf("expected suggestion rendered, got: %s", out)
	}
}

func TestFormatErrorWithSuggestions_NoSuggestions(t *testing.T) {
	out := FormatErrorWithSuggestions("vault not found", nil)
	if strings.Contains(out, "Suggestions:") {
		t.Errorf("did not expect a suggestions header, got: %s", out)
	}
}
