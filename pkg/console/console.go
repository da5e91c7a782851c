package console

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/styles"
	"github.com/mattn/go-isatty"
)

var consoleLog = logger.New("console:console")

// SourcePosition locates a line/column inside a workflow or template markdown file.
type SourcePosition struct {
	File   string
	Line   int
	Column int
}

// SourceError is a structured, position-aware error used to render
// DirectiveParseError / PatternResolutionError / TriggerError output the
// way a compiler would: file:line:column, a type, a message, and a
// snippet of surrounding source.
type SourceError struct {
	Position SourcePosition
	Type     string // "error", "warning", "info"
	Message  string
	Context  []string
}

func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// ToRelativePath converts an absolute path to one relative to the current
// working directory, falling back to the original path if that fails.
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}

// FormatError renders a SourceError with an IDE-parseable location prefix
// and, when context lines are supplied, a small source snippet with the
// offending line highlighted.
func FormatError(err SourceError) string {
	consoleLog.Printf("formatting error: type=%s file=%s line=%d", err.Type, err.Position.File, err.Position.Line)
	var out strings.Builder

	var typeStyle lipgloss.Style
	prefix := "error"
	switch err.Type {
	case "warning":
		typeStyle = styles.Warning
		prefix = "warning"
	case "info":
		typeStyle = styles.Info
		prefix = "info"
	default:
		typeStyle = styles.Error
	}

	if err.Position.File != "" {
		loc := fmt.Sprintf("%s:%d:%d:", ToRelativePath(err.Position.File), err.Position.Line, err.Position.Column)
		out.WriteString(applyStyle(styles.FilePath, loc))
		out.WriteString(" ")
	}
	out.WriteString(applyStyle(typeStyle, prefix+":"))
	out.WriteString(" ")
	out.WriteString(err.Message)
	out.WriteString("\n")

	if len(err.Context) > 0 && err.Position.Line > 0 {
		out.WriteString(renderContext(err))
	}
	return out.String()
}

func renderContext(err SourceError) string {
	var out strings.Builder
	maxLine := err.Position.Line + len(err.Context)/2
	width := len(fmt.Sprintf("%d", maxLine))

	for i, line := range err.Context {
		lineNum := err.Position.Line - len(err.Context)/2 + i
		if lineNum < 1 {
			continue
		}
		out.WriteString(applyStyle(styles.LineNumber, fmt.Sprintf("%*d", width, lineNum)))
		out.WriteString(" | ")
		if lineNum == err.Position.Line {
			out.WriteString(applyStyle(styles.Highlight, line))
		} else {
			out.WriteString(applyStyle(styles.ContextLine, line))
		}
		out.WriteString("\n")
	}
	return out.String()
}

// FormatSuccessMessage formats a success message with styling.
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage formats an informational message.
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, "ℹ ") + message
}

// FormatWarningMessage formats a warning message.
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "⚠ ") + message
}

// FormatErrorMessage formats a simple error message (for stderr output).
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "✗ ") + message
}

// FormatErrorWithSuggestions formats an error with actionable follow-ups,
// e.g. "configure the ANTHROPIC_API_KEY secret".
func FormatErrorWithSuggestions(message string, suggestions []string) string {
	var out strings.Builder
	out.WriteString(FormatErrorMessage(message))
	if len(suggestions) > 0 {
		out.WriteString("\n\nSuggestions:\n")
		for _, s := range suggestions {
			out.WriteString("  • " + s + "\n")
		}
	}
	return out.String()
}
