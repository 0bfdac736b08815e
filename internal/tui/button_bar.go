package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// ButtonState represents the visual state of a button.
type ButtonState int

const (
	ButtonNormal   ButtonState = iota // Normal state (enabled)
	ButtonDisabled                    // Disabled state (grayed out)
	ButtonFocused                     // Focused/highlighted state
)

// Button represents a single button in the button bar.
type Button struct {
	Label string
	State ButtonState
}

var (
	styleButtonNormal = lipgloss.NewStyle().
				Foreground(colorText).
				Background(colorSurface0).
				Padding(0, 2).
				MarginLeft(1).
				MarginRight(1)

	styleButtonDisabled = lipgloss.NewStyle().
				Foreground(colorOverlay0).
				Background(colorMantle).
				Padding(0, 2).
				MarginLeft(1).
				MarginRight(1)

	styleButtonFocused = lipgloss.NewStyle().
				Foreground(colorBase).
				Background(colorSecondary).
				Bold(true).
				Padding(0, 2).
				MarginLeft(1).
				MarginRight(1)
)

// renderButtons renders buttons side by side, centered in width.
func renderButtons(width int, buttons ...Button) string {
	if len(buttons) == 0 {
		return ""
	}

	rendered := make([]string, len(buttons))
	for i, btn := range buttons {
		switch btn.State {
		case ButtonDisabled:
			rendered[i] = styleButtonDisabled.Render(btn.Label)
		case ButtonFocused:
			rendered[i] = styleButtonFocused.Render(btn.Label)
		default:
			rendered[i] = styleButtonNormal.Render(btn.Label)
		}
	}

	return lipgloss.Place(width, 1, lipgloss.Center, lipgloss.Center, strings.Join(rendered, ""))
}

// stepButtons returns the Back/Cancel and Save/Finish pair for a step.
// The save button is disabled while a submission is outstanding.
func stepButtons(first, last, busy bool) []Button {
	back := Button{Label: "← Back"}
	if first {
		back.Label = "Cancel"
	}
	if busy {
		back.State = ButtonDisabled
	}

	save := Button{Label: "Continue", State: ButtonFocused}
	if last {
		save.Label = "Finish"
	}
	if busy {
		save.State = ButtonDisabled
	}
	return []Button{back, save}
}
