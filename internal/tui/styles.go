package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette (Catppuccin Mocha)
var (
	colorPrimary       = lipgloss.Color("#cba6f7") // Mauve
	colorSecondary     = lipgloss.Color("#b4befe") // Lavender
	colorText          = lipgloss.Color("#cdd6f4") // Text
	colorBase          = lipgloss.Color("#1e1e2e") // Base
	colorMantle        = lipgloss.Color("#181825") // Mantle
	colorSurface0      = lipgloss.Color("#313244") // Surface0
	colorSurface2      = lipgloss.Color("#585b70") // Surface2
	colorOverlay0      = lipgloss.Color("#6c7086") // Overlay0
	colorSubtext0      = lipgloss.Color("#a6adc8") // Subtext0
	colorSubtext1      = lipgloss.Color("#bac2de") // Subtext1
	colorSuccess       = lipgloss.Color("#a6e3a1") // Green
	colorError         = lipgloss.Color("#f38ba8") // Red
	colorBorderFocused = lipgloss.Color("#b4befe") // Lavender for borders
)

// Modal styles
var (
	styleModalContainer = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorderFocused).
				Background(colorBase).
				Padding(1, 2)

	styleModalTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Align(lipgloss.Center)

	styleStepIndicator = lipgloss.NewStyle().
				Foreground(colorSubtext0)
)

// Form styles
var (
	styleLabel    = lipgloss.NewStyle().Foreground(colorSubtext0)
	styleOptional = lipgloss.NewStyle().Foreground(colorOverlay0).Italic(true)
	styleError    = lipgloss.NewStyle().Foreground(colorError)
	styleSuccess  = lipgloss.NewStyle().Foreground(colorSuccess)
	styleBusy     = lipgloss.NewStyle().Foreground(colorSubtext1)
)

// Hint bar styles
var (
	styleHintKey = lipgloss.NewStyle().
			Foreground(colorSubtext1).
			Bold(true)

	styleHintDesc = lipgloss.NewStyle().
			Foreground(colorSubtext0)

	styleHintSeparator = lipgloss.NewStyle().
				Foreground(colorSurface2)
)

// renderHintBar renders a hint bar with the given key-description pairs.
// Example: renderHintBar("↑↓", "navigate", "enter", "select", "esc", "back")
// Returns: "↑↓ navigate • enter select • esc back"
func renderHintBar(pairs ...string) string {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			b.WriteString(" " + styleHintSeparator.Render("•") + " ")
		}
		b.WriteString(styleHintKey.Render(pairs[i]) + " " + styleHintDesc.Render(pairs[i+1]))
	}
	return b.String()
}
