package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/shipflow/internal/shipping"
)

var (
	styleMethodCursor   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleMethodSelected = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	styleMethodNormal   = lipgloss.NewStyle().Foreground(colorSubtext1)
	styleMethodDetail   = lipgloss.NewStyle().Foreground(colorOverlay0)
	styleMethodAmount   = lipgloss.NewStyle().Foreground(colorSuccess)
)

// MethodStep lists the shipping methods returned by the validator.
type MethodStep struct {
	methods []shipping.ShippingMethod
	cursor  int
	width   int
}

// NewMethodStep creates an empty method list.
func NewMethodStep() *MethodStep {
	return &MethodStep{width: 60}
}

// SetMethods replaces the list and moves the cursor to selectedID when present.
func (m *MethodStep) SetMethods(methods []shipping.ShippingMethod, selectedID string) {
	m.methods = append([]shipping.ShippingMethod(nil), methods...)
	m.cursor = 0
	for i, method := range m.methods {
		if method.ID == selectedID {
			m.cursor = i
			break
		}
	}
}

// Selected returns the method under the cursor.
func (m *MethodStep) Selected() (shipping.ShippingMethod, bool) {
	if len(m.methods) == 0 {
		return shipping.ShippingMethod{}, false
	}
	return m.methods[m.cursor], true
}

// SetSize updates the available width.
func (m *MethodStep) SetSize(width int) {
	m.width = width
}

// Update handles messages for the method step.
func (m *MethodStep) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return nil
	}

	switch keyMsg.String() {
	case "up", "k", "shift+tab":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(m.methods)-1 {
			m.cursor++
		}
	case "enter", "space", " ":
		return func() tea.Msg { return SaveMsg{} }
	}
	return nil
}

// View renders the method list.
func (m *MethodStep) View() string {
	if len(m.methods) == 0 {
		return styleMethodDetail.Render("No shipping methods available")
	}

	var b strings.Builder
	for i, method := range m.methods {
		if i > 0 {
			b.WriteString("\n")
		}

		amount := styleMethodAmount.Render(method.DisplayAmount())
		if i == m.cursor {
			b.WriteString(styleMethodCursor.Render("▸ ") + styleMethodSelected.Render(method.Label) + "  " + amount)
		} else {
			b.WriteString("  " + styleMethodNormal.Render(method.Label) + "  " + amount)
		}
		if method.Detail != "" {
			b.WriteString("\n" + styleMethodDetail.Render(fmt.Sprintf("    %s", method.Detail)))
		}
	}
	return b.String()
}
