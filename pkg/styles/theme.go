// Package styles provides centralized style and color definitions for terminal output.
// It uses lipgloss.AdaptiveColor to automatically adapt colors based on the terminal background,
// ensuring good readability in both light and dark terminal themes.
package styles

import "github.com/charmbracelet/lipgloss"

// Adaptive colors that work well in both light and dark terminal themes.
// Light variants use darker, more saturated colors for visibility on light backgrounds.
// Dark variants use brighter colors (Dracula theme inspired) for dark backgrounds.
var (
	// ColorError is used for error messages and critical issues.
	ColorError = lipgloss.AdaptiveColor{
		Light: "#D73737",
		Dark:  "#FF5555",
	}

	// ColorWarning is used for warning messages and cautionary information.
	ColorWarning = lipgloss.AdaptiveColor{
		Light: "#E67E22",
		Dark:  "#FFB86C",
	}

	// ColorSuccess is used for success messages and confirmations.
	ColorSuccess = lipgloss.AdaptiveColor{
		Light: "#27AE60",
		Dark:  "#50FA7B",
	}

	// ColorInfo is used for informational messages.
	ColorInfo = lipgloss.AdaptiveColor{
		Light: "#2980B9",
		Dark:  "#8BE9FD",
	}

	// ColorPurple is used for file paths, workflow ids, and highlights.
	ColorPurple = lipgloss.AdaptiveColor{
		Light: "#8E44AD",
		Dark:  "#BD93F9",
	}

	// ColorComment is used for secondary/muted information like line numbers.
	ColorComment = lipgloss.AdaptiveColor{
		Light: "#6C7A89",
		Dark:  "#6272A4",
	}

	// ColorForeground is used for primary text content.
	ColorForeground = lipgloss.AdaptiveColor{
		Light: "#2C3E50",
		Dark:  "#F8F8F2",
	}

	// ColorBackground is used for highlighted backgrounds.
	ColorBackground = lipgloss.AdaptiveColor{
		Light: "#ECF0F1",
		Dark:  "#282A36",
	}
)

// RoundedBorder is used for error boxes and emphasis panels.
var RoundedBorder = lipgloss.RoundedBorder()

// Error style for error messages - bold red.
var Error = lipgloss.NewStyle().Bold(true).Foreground(ColorError)

// Warning style for warning messages - bold orange.
var Warning = lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)

// Success style for success messages - bold green.
var Success = lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess)

// Info style for informational messages - bold cyan.
var Info = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)

// FilePath style for workflow/file identifiers - bold purple.
var FilePath = lipgloss.NewStyle().Bold(true).Foreground(ColorPurple)

// LineNumber style for line numbers in error context - muted.
var LineNumber = lipgloss.NewStyle().Foreground(ColorComment)

// ContextLine style for source text context lines.
var ContextLine = lipgloss.NewStyle().Foreground(ColorForeground)

// Highlight style for error highlighting - inverted colors.
var Highlight = lipgloss.NewStyle().Background(ColorError).Foreground(ColorBackground)

// Verbose style for debug-ish output - italic muted.
var Verbose = lipgloss.NewStyle().Italic(true).Foreground(ColorComment)
