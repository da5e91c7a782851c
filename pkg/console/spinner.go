// Package console provides terminal UI helpers: colored status messages,
// Rust-like error rendering, and a minimal progress spinner for long-running
// CLI operations (vault rescans, workflow runs).
package console

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// SpinnerWrapper wraps briandowns/spinner with TTY detection so that
// non-interactive invocations (CI, piped output, ACCESSIBLE=1) never emit
// animated escape sequences.
type SpinnerWrapper struct {
	s       *spinner.Spinner
	enabled bool
	running bool
}

// NewSpinner creates a spinner with the given status message. It stays
// disabled outside a real terminal or when ACCESSIBLE is set.
func NewSpinner(message string) *SpinnerWrapper {
	enabled := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("ACCESSIBLE") == ""

	w := &SpinnerWrapper{enabled: enabled}
	if enabled {
		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " " + message
		w.s = s
	}
	return w
}

// Start begins the spinner animation.
func (w *SpinnerWrapper) Start() {
	if !w.enabled || w.running {
		return
	}
	w.running = true
	w.s.Start()
}

// Stop stops the spinner and clears the line.
func (w *SpinnerWrapper) Stop() {
	if !w.enabled || !w.running {
		return
	}
	w.running = false
	w.s.Stop()
}

// StopWithMessage stops the spinner and prints a final message in its place.
func (w *SpinnerWrapper) StopWithMessage(msg string) {
	if !w.enabled {
		return
	}
	if w.running {
		w.running = false
		w.s.Stop()
	}
	os.Stderr.WriteString(msg + "\n")
}

// UpdateMessage changes the spinner's suffix text while it runs.
func (w *SpinnerWrapper) UpdateMessage(message string) {
	if !w.enabled || !w.running {
		return
	}
	w.s.Suffix = " " + message
}

// IsEnabled reports whether the spinner will actually animate.
func (w *SpinnerWrapper) IsEnabled() bool {
	return w.enabled
}
