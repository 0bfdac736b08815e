package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mark3labs/shipflow/internal/bus"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/logger"
)

// ErrInterrupted is returned by RunWizard when the program exits before the
// flow reaches a result.
var ErrInterrupted = errors.New("wizard interrupted")

// EventMsg carries a bus event into the Update loop.
type EventMsg struct {
	Event bus.Event
}

// DialogClosedMsg is sent when the alert dialog is dismissed.
type DialogClosedMsg struct{}

// WizardModel hosts a flow controller: it renders the active step, feeds
// form input to the controller and pumps bus events back into it.
type WizardModel struct {
	ctx    context.Context
	ctrl   *flow.Controller
	step   flow.Step // Step currently rendered
	notice string    // Rejection message under the form
	width  int
	height int

	address *AddressStep
	method  *MethodStep
	busy    *BusyIndicator
	dialog  *Dialog
}

// NewWizard creates the wizard for a started controller. The dialog must
// be the controller's alert displayer.
func NewWizard(ctx context.Context, ctrl *flow.Controller, dialog *Dialog) *WizardModel {
	session := ctrl.Session()
	m := &WizardModel{
		ctx:     ctx,
		ctrl:    ctrl,
		step:    ctrl.Step(),
		width:   80,
		height:  24,
		address: NewAddressStep(session.Config, session.ShippingInformation),
		busy:    NewBusyIndicator("Verifying address..."),
		dialog:  dialog,
	}
	if slices.Contains(ctrl.Steps(), flow.StepShippingMethod) {
		m.method = NewMethodStep()
	}
	dialog.onClose = func() tea.Cmd {
		return func() tea.Msg { return DialogClosedMsg{} }
	}
	ctrl.Progress().OnChange(m.busy.SetActive)
	return m
}

// RunWizard runs the wizard as a standalone program until the flow
// completes or is cancelled.
func RunWizard(ctx context.Context, ctrl *flow.Controller, dialog *Dialog) (flow.Result, error) {
	m := NewWizard(ctx, ctrl, dialog)

	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return flow.Result{}, fmt.Errorf("wizard failed: %w", err)
	}

	res, ok := ctrl.Result()
	if !ok {
		return flow.Result{}, ErrInterrupted
	}
	return res, nil
}

// Init focuses the address form and starts listening for bus events.
func (m *WizardModel) Init() tea.Cmd {
	return tea.Batch(m.address.Focus(), m.waitForEvents())
}

// waitForEvents blocks on the controller's inbox.
func (m *WizardModel) waitForEvents() tea.Cmd {
	events := m.ctrl.Events()
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			// Channel closed, stop receiving
			return nil
		}
		return EventMsg{Event: event}
	}
}

// Update handles messages for the wizard.
func (m *WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateSize()
		return m, nil

	case EventMsg:
		wasSubmitting := m.ctrl.State() == flow.StateSubmitting
		m.ctrl.Handle(msg.Event)
		if wasSubmitting && m.ctrl.State() == flow.StateIdle && !m.ctrl.Session().Valid {
			m.notice = "This address could not be verified. Check it and try again."
		}
		return m, tea.Batch(m.sync(), m.waitForEvents())

	case spinner.TickMsg:
		return m, m.busy.Update(msg)

	case DialogClosedMsg:
		m.ctrl.DismissError()
		return m, m.sync()

	case SaveMsg:
		return m, m.save()

	case tea.KeyPressMsg:
		// Modal dialog takes priority
		if m.dialog.IsVisible() {
			return m, m.dialog.Update(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			m.ctrl.Cancel()
			return m, tea.Quit
		case "esc":
			if m.step == flow.StepShippingMethod {
				if err := m.ctrl.Back(); err != nil {
					logger.Debug("Back ignored: %v", err)
				}
				return m, m.sync()
			}
			m.ctrl.Cancel()
			return m, tea.Quit
		}

		// Forms are locked while a submission is outstanding
		if m.ctrl.State() == flow.StateSubmitting {
			return m, nil
		}
	}

	return m, m.updateStep(msg)
}

func (m *WizardModel) updateStep(msg tea.Msg) tea.Cmd {
	switch m.step {
	case flow.StepAddress:
		return m.address.Update(msg)
	case flow.StepShippingMethod:
		if m.method != nil {
			return m.method.Update(msg)
		}
	}
	return nil
}

// save pushes the form's values into the controller and asks it to advance.
func (m *WizardModel) save() tea.Cmd {
	m.notice = ""

	var cmds []tea.Cmd
	switch m.step {
	case flow.StepAddress:
		if err := m.ctrl.SetShippingInformation(m.address.Info(m.ctrl.Session().ShippingInformation)); err != nil {
			logger.Debug("Save ignored: %v", err)
			return nil
		}
		if verdict := m.ctrl.Check(); !verdict.Valid {
			cmds = append(cmds, m.address.SetInvalid(verdict.Invalid))
		} else {
			m.address.SetInvalid(nil)
		}

	case flow.StepShippingMethod:
		if m.method == nil {
			return nil
		}
		if sel, ok := m.method.Selected(); ok {
			if err := m.ctrl.SelectShippingMethod(sel.ID); err != nil {
				logger.Debug("Selection ignored: %v", err)
				return nil
			}
		}
	}

	if err := m.ctrl.OnSave(m.ctx); err != nil {
		logger.Error("Save failed: %v", err)
		m.dialog.DisplayAlert("Could not submit shipping details. Try again.")
	}

	cmds = append(cmds, m.sync())
	return tea.Batch(cmds...)
}

// sync brings the rendered step in line with the controller.
func (m *WizardModel) sync() tea.Cmd {
	if m.ctrl.State() == flow.StateTerminated {
		return tea.Quit
	}

	var cmds []tea.Cmd
	if step := m.ctrl.Step(); step != m.step {
		m.step = step
		switch step {
		case flow.StepShippingMethod:
			m.address.Blur()
			if m.method == nil {
				break
			}
			session := m.ctrl.Session()
			selected := ""
			if session.SelectedMethod != nil {
				selected = session.SelectedMethod.ID
			}
			m.method.SetMethods(session.ShippingMethods, selected)
		case flow.StepAddress:
			cmds = append(cmds, m.address.Focus())
		}
	}

	cmds = append(cmds, m.busy.Tick())
	return tea.Batch(cmds...)
}

// updateSize updates the size of the step components.
func (m *WizardModel) updateSize() {
	contentWidth := max(m.width-10, 40)
	m.address.SetSize(contentWidth)
	if m.method != nil {
		m.method.SetSize(contentWidth)
	}
}

// View renders the wizard UI.
func (m *WizardModel) View() tea.View {
	var view tea.View
	view.AltScreen = true

	canvas := uv.NewScreenBuffer(m.width, m.height)
	area := uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	}
	uv.NewStyledString(m.renderModal()).Draw(canvas, area)
	m.dialog.Draw(canvas, area)

	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

// renderModal wraps the active step in a modal container with title,
// status line, buttons and hints.
func (m *WizardModel) renderModal() string {
	steps := m.ctrl.Steps()
	index := 0
	for i, s := range steps {
		if s == m.step {
			index = i
		}
	}

	modalWidth := min(max(m.width-10, 60), 100)
	innerWidth := modalWidth - 4

	var sections []string
	sections = append(sections, styleModalTitle.Render(m.step.Title()))
	sections = append(sections, styleStepIndicator.Render(fmt.Sprintf("Step %d of %d", index+1, len(steps))))
	sections = append(sections, "")

	switch m.step {
	case flow.StepAddress:
		sections = append(sections, m.address.View())
	case flow.StepShippingMethod:
		if m.method != nil {
			sections = append(sections, m.method.View())
		}
	}

	sections = append(sections, "")
	switch {
	case m.busy.Active():
		sections = append(sections, m.busy.View())
	case m.notice != "":
		sections = append(sections, styleError.Render(m.notice))
	default:
		sections = append(sections, "")
	}

	busy := m.ctrl.State() == flow.StateSubmitting
	sections = append(sections, renderButtons(innerWidth, stepButtons(index == 0, index == len(steps)-1, busy)...))
	sections = append(sections, "")
	sections = append(sections, m.hints())

	modal := styleModalContainer.Width(modalWidth).Render(strings.Join(sections, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m *WizardModel) hints() string {
	if m.step == flow.StepShippingMethod {
		return renderHintBar("↑↓", "choose", "enter", "confirm", "esc", "back")
	}
	return renderHintBar("tab", "next field", "enter", "continue", "esc", "cancel")
}
