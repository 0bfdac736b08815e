package tui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/shipping"
)

// SaveMsg is sent by a step form when the user asks to continue.
type SaveMsg struct{}

// addressInput pairs a form field with its text input.
type addressInput struct {
	field    shipping.Field
	optional bool
	input    textinput.Model
}

// AddressStep manages the address form.
type AddressStep struct {
	inputs     []addressInput
	focusIndex int
	invalid    map[shipping.Field]bool
	width      int
}

var inputStyles = textinput.Styles{
	Focused: textinput.StyleState{
		Text:        lipgloss.NewStyle().Foreground(colorText),
		Placeholder: lipgloss.NewStyle().Foreground(colorSubtext0),
		Prompt:      lipgloss.NewStyle().Foreground(colorSecondary),
	},
	Blurred: textinput.StyleState{
		Text:        lipgloss.NewStyle().Foreground(colorSubtext0),
		Placeholder: lipgloss.NewStyle().Foreground(colorSubtext0),
		Prompt:      lipgloss.NewStyle().Foreground(colorOverlay0),
	},
	Cursor: textinput.CursorStyle{
		Color: colorPrimary,
		Shape: tea.CursorBar,
		Blink: true,
	},
}

// NewAddressStep builds one input per visible field, pre-filled from info.
func NewAddressStep(cfg flow.Configuration, info shipping.ShippingInformation) *AddressStep {
	a := &AddressStep{
		invalid: make(map[shipping.Field]bool),
		width:   60,
	}

	for _, f := range shipping.Fields {
		if cfg.IsHidden(f) {
			continue
		}
		in := textinput.New()
		in.Placeholder = f.Label()
		in.Prompt = "> "
		in.SetStyles(inputStyles)
		in.SetWidth(a.width - 10)
		in.SetValue(info.Get(f))
		a.inputs = append(a.inputs, addressInput{
			field:    f,
			optional: cfg.IsOptional(f),
			input:    in,
		})
	}
	return a
}

// Focus gives focus to the first input.
func (a *AddressStep) Focus() tea.Cmd {
	return a.focus(0)
}

// Blur removes focus from all inputs.
func (a *AddressStep) Blur() {
	for i := range a.inputs {
		a.inputs[i].input.Blur()
	}
}

// SetSize updates the available width.
func (a *AddressStep) SetSize(width int) {
	a.width = width
	for i := range a.inputs {
		a.inputs[i].input.SetWidth(width - 10)
	}
}

// Info copies the visible form values over base. Hidden fields keep the
// values base carries.
func (a *AddressStep) Info(base shipping.ShippingInformation) shipping.ShippingInformation {
	info := base
	for _, in := range a.inputs {
		info.Set(in.field, in.input.Value())
	}
	return info
}

// SetInvalid marks fields that failed validation. The first one takes focus.
func (a *AddressStep) SetInvalid(fields []shipping.Field) tea.Cmd {
	a.invalid = make(map[shipping.Field]bool, len(fields))
	for _, f := range fields {
		a.invalid[f] = true
	}
	for i, in := range a.inputs {
		if a.invalid[in.field] {
			return a.focus(i)
		}
	}
	return nil
}

// Invalid reports whether the field is currently flagged.
func (a *AddressStep) Invalid(f shipping.Field) bool {
	return a.invalid[f]
}

// Focused returns the field holding focus.
func (a *AddressStep) Focused() shipping.Field {
	if len(a.inputs) == 0 {
		return ""
	}
	return a.inputs[a.focusIndex].field
}

// Update handles messages for the address step.
func (a *AddressStep) Update(msg tea.Msg) tea.Cmd {
	if len(a.inputs) == 0 {
		return nil
	}

	if keyMsg, ok := msg.(tea.KeyPressMsg); ok {
		switch keyMsg.String() {
		case "tab", "down":
			return a.focus((a.focusIndex + 1) % len(a.inputs))
		case "shift+tab", "up":
			return a.focus((a.focusIndex - 1 + len(a.inputs)) % len(a.inputs))
		case "enter":
			return func() tea.Msg { return SaveMsg{} }
		}
	}

	current := &a.inputs[a.focusIndex]
	before := current.input.Value()

	var cmd tea.Cmd
	current.input, cmd = current.input.Update(msg)

	// Clear the error once the field is edited
	if current.input.Value() != before {
		delete(a.invalid, current.field)
	}
	return cmd
}

func (a *AddressStep) focus(index int) tea.Cmd {
	if len(a.inputs) == 0 {
		return nil
	}
	a.Blur()
	a.focusIndex = index
	return a.inputs[index].input.Focus()
}

// View renders the address form.
func (a *AddressStep) View() string {
	var b strings.Builder
	for i, in := range a.inputs {
		if i > 0 {
			b.WriteString("\n")
		}

		label := styleLabel.Render(in.field.Label())
		if in.optional {
			label += " " + styleOptional.Render("(optional)")
		}
		b.WriteString(label + "\n")
		b.WriteString(in.input.View() + "\n")

		if a.invalid[in.field] {
			b.WriteString(styleError.Render("  " + invalidMessage(in.field)))
		}
	}
	return b.String()
}

func invalidMessage(f shipping.Field) string {
	switch f {
	case shipping.FieldPostalCode:
		return "Enter a valid postal code for the country"
	case shipping.FieldCountry:
		return "Enter a two-letter country code"
	default:
		return f.Label() + " is required"
	}
}
