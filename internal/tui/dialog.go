package tui

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
)

// Dialog represents a modal alert overlay. It is the flow's alert displayer.
type Dialog struct {
	title      string
	message    string
	button     string
	visible    bool
	shown      int          // Number of alerts displayed so far
	onClose    func() tea.Cmd
	dialogArea uv.Rectangle // Screen area where dialog is drawn (for mouse hit detection)
}

// NewDialog creates a hidden dialog.
func NewDialog(onClose func() tea.Cmd) *Dialog {
	return &Dialog{
		title:   "Error",
		button:  "OK",
		onClose: onClose,
	}
}

// DisplayAlert shows message in the dialog.
func (d *Dialog) DisplayAlert(message string) {
	d.message = message
	d.visible = true
	d.shown++
}

// Hide closes the dialog
func (d *Dialog) Hide() {
	d.visible = false
}

// IsVisible returns whether the dialog is visible
func (d *Dialog) IsVisible() bool {
	return d.visible
}

// Message returns the last alert message.
func (d *Dialog) Message() string {
	return d.message
}

// Shown returns how many alerts have been displayed.
func (d *Dialog) Shown() int {
	return d.shown
}

// Update handles dialog input
func (d *Dialog) Update(msg tea.Msg) tea.Cmd {
	if !d.visible {
		return nil
	}

	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter", "space", " ", "esc":
			return d.close()
		}
	case tea.MouseClickMsg:
		return d.close()
	}
	return nil
}

func (d *Dialog) close() tea.Cmd {
	d.Hide()
	if d.onClose != nil {
		return d.onClose()
	}
	return nil
}

// Render returns the dialog box, or "" when hidden.
func (d *Dialog) Render() string {
	if !d.visible {
		return ""
	}

	// Calculate content width first for consistent alignment
	contentWidth := max(lipgloss.Width(d.message), lipgloss.Width(d.title))

	titleStyle := lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Width(contentWidth).
		Align(lipgloss.Center)

	messageStyle := lipgloss.NewStyle().
		Foreground(colorText).
		Width(contentWidth).
		Align(lipgloss.Center)

	buttonStyle := lipgloss.NewStyle().
		Foreground(colorBase).
		Background(colorError).
		Padding(0, 2)

	buttonLine := lipgloss.NewStyle().
		Width(contentWidth).
		Align(lipgloss.Center).
		Render(buttonStyle.Render(d.button))

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		titleStyle.Render(d.title),
		"",
		messageStyle.Render(d.message),
		"",
		buttonLine,
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorError).
		Background(colorBase).
		Padding(1, 3).
		Render(content)
}

// Draw renders the dialog centered in area.
func (d *Dialog) Draw(scr uv.Screen, area uv.Rectangle) {
	dialog := d.Render()
	if dialog == "" {
		return
	}

	dialogWidth := lipgloss.Width(dialog)
	dialogHeight := lipgloss.Height(dialog)
	x := max((area.Dx()-dialogWidth)/2, 0)
	y := max((area.Dy()-dialogHeight)/2, 0)

	d.dialogArea = uv.Rectangle{
		Min: uv.Position{X: area.Min.X + x, Y: area.Min.Y + y},
		Max: uv.Position{X: area.Min.X + x + dialogWidth, Y: area.Min.Y + y + dialogHeight},
	}
	uv.NewStyledString(dialog).Draw(scr, d.dialogArea)
}
