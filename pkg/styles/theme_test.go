package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestAdaptiveColorsHaveBothVariants(t *testing.T) {
	colors := map[string]lipgloss.AdaptiveColor{
		"ColorError":      ColorError,
		"ColorWarning":    ColorWarning,
		"ColorSuccess":    ColorSuccess,
		"ColorInfo":       ColorInfo,
		"ColorPurple":     ColorPurple,
		"ColorComment":    ColorComment,
		"ColorForeground": ColorForeground,
		"ColorBackground": ColorBackground,
	}

	for name, color := range colors {
		t.Run(name, func(t *testing.T) {
			if color.Light == "" {
				t.Errorf("%s has empty Light variant", name)
			}
			if color.Dark == "" {
				t.Errorf("%s has empty Dark variant", name)
			}
			if color.Light == color.Dark {
				t.Errorf("%s has identical Light and Dark variants: %s", name, color.Light)
			}
		})
	}
}

func isValidHex(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func TestColorFormats(t *testing.T) {
	colors := []lipgloss.AdaptiveColor{ColorError, ColorWarning, ColorSuccess, ColorInfo, ColorPurple, ColorComment, ColorForeground, ColorBackground}
	for _, c := range colors {
		if !isValidHex(c.Light) {
			t.Errorf("invalid light hex: %s", c.Light)
		}
		if !isValidHex(c.Dark) {
			t.Errorf("invalid dark hex: %s", c.Dark)
		}
	}
}
