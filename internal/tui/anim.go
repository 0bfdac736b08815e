package tui

import (
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// BusyIndicator renders a spinner while a submission is outstanding. It is
// driven by the flow's progress signal through SetActive.
type BusyIndicator struct {
	model   spinner.Model
	label   string
	active  bool
	ticking bool // Whether the spinner tick chain has been started
}

// NewBusyIndicator creates an inactive indicator with a MiniDot spinner.
func NewBusyIndicator(label string) *BusyIndicator {
	return &BusyIndicator{
		model: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(colorPrimary)),
		),
		label: label,
	}
}

// SetActive turns the indicator on or off.
func (b *BusyIndicator) SetActive(active bool) {
	b.active = active
	if !active {
		b.ticking = false
	}
}

// Active reports whether the indicator is shown.
func (b *BusyIndicator) Active() bool {
	return b.active
}

// Tick starts the animation if the indicator is active and not yet ticking.
func (b *BusyIndicator) Tick() tea.Cmd {
	if !b.active || b.ticking {
		return nil
	}
	b.ticking = true
	return b.model.Tick
}

// Update advances the animation. The tick chain stops once inactive.
func (b *BusyIndicator) Update(msg tea.Msg) tea.Cmd {
	if !b.active {
		return nil
	}
	var cmd tea.Cmd
	b.model, cmd = b.model.Update(msg)
	return cmd
}

// View renders the spinner and label, or nothing when inactive.
func (b *BusyIndicator) View() string {
	if !b.active {
		return ""
	}
	return b.model.View() + " " + styleBusy.Render(b.label)
}
