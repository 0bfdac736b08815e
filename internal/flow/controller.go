// Package flow implements the shipping wizard's state machine: it sequences
// the address and shipping method steps, hands captured input to an external
// validator over the event bus and reacts to the verdict.
//
// A Controller is not safe for concurrent use. Every method must be called
// from the goroutine that drains Events().
package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/shipflow/internal/bus"
	"github.com/mark3labs/shipflow/internal/logger"
	"github.com/mark3labs/shipflow/internal/shipping"
)

var (
	ErrNotStarted     = errors.New("flow not started")
	ErrAlreadyStarted = errors.New("flow already started")
	ErrTerminated     = errors.New("flow terminated")
	ErrBusy           = errors.New("submission outstanding")
	ErrWrongStep      = errors.New("operation not valid on current step")
	ErrUnknownMethod  = errors.New("unknown shipping method")
)

// State is the controller's position in the flow.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateErrorShown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSubmitting:
		return "Submitting"
	case StateErrorShown:
		return "ErrorShown"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// EventChannel is the publish/subscribe surface the controller needs.
type EventChannel interface {
	Publish(ctx context.Context, typ bus.Type, payload any) error
	Subscribe(types ...bus.Type) (*bus.Subscription, error)
}

// AlertDisplayer shows an error message to the user.
type AlertDisplayer interface {
	DisplayAlert(message string)
}

// Recorder observes flow outcomes, typically for metrics.
type Recorder interface {
	SubmissionPublished()
	ResultReceived(valid bool)
	ErrorReceived(statusCode int)
	StaleReplyDropped()
	Completed(cancelled bool)
}

// Result is the completion signal handed to the caller.
type Result struct {
	ShippingInformation shipping.ShippingInformation
	ShippingMethod      *shipping.ShippingMethod // Nil when the method step was not shown
	Cancelled           bool
}

// ControllerConfig wires a controller to its collaborators.
type ControllerConfig struct {
	Channel    EventChannel
	Alerts     AlertDisplayer // Optional
	OnComplete func(Result)   // Optional
	Recorder   Recorder       // Optional
}

// Controller is the wizard state machine.
type Controller struct {
	channel    EventChannel
	alerts     AlertDisplayer
	onComplete func(Result)
	recorder   Recorder
	gate       *Gate

	progress  Progress
	session   *Session
	steps     []Step
	state     State
	sub       *bus.Subscription
	pending   string // Request ID of the outstanding submission
	lastError *shipping.APIError
	result    *Result
}

// NewController creates a controller. Call Start to begin a run.
func NewController(cfg ControllerConfig) *Controller {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Controller{
		channel:    cfg.Channel,
		alerts:     cfg.Alerts,
		onComplete: cfg.OnComplete,
		recorder:   recorder,
		gate:       NewGate(),
	}
}

// Start subscribes to the run's replies, computes the step sequence and
// enters Idle(ADDRESS), pre-filled from the configuration when provided.
func (c *Controller) Start(cfg Configuration) error {
	if c.session != nil {
		return ErrAlreadyStarted
	}

	sub, err := c.channel.Subscribe(bus.TypeShippingInfoProcessed, bus.TypeAPIException)
	if err != nil {
		return fmt.Errorf("subscribing to flow events: %w", err)
	}

	c.sub = sub
	c.session = newSession(cfg)
	c.steps = applicableSteps(cfg)
	c.state = StateIdle

	logger.Info("Flow started: steps=%v prepopulated=%t", c.steps, cfg.PrepopulatedShippingInfo != nil)
	return nil
}

// Events returns the inbox of replies. The caller drains it on the
// controller's goroutine and passes each event to Handle.
func (c *Controller) Events() <-chan bus.Event {
	if c.sub == nil {
		return nil
	}
	return c.sub.Events()
}

// Handle dispatches an inbound event. Events arriving after termination,
// and events that cannot be decoded, are dropped.
func (c *Controller) Handle(evt bus.Event) {
	if c.session == nil || c.state == StateTerminated {
		logger.Debug("Dropping %s event %s: flow not active", evt.Type, evt.ID)
		return
	}

	switch evt.Type {
	case bus.TypeShippingInfoProcessed:
		var p bus.ShippingInfoProcessed
		if err := evt.Decode(&p); err != nil {
			logger.Warn("Dropping malformed event %s: %v", evt.ID, err)
			return
		}
		c.OnResultEvent(p)

	case bus.TypeAPIException:
		var p bus.APIException
		if err := evt.Decode(&p); err != nil {
			logger.Warn("Dropping malformed event %s: %v", evt.ID, err)
			return
		}
		c.OnErrorEvent(p)

	default:
		logger.Debug("Ignoring %s event %s", evt.Type, evt.ID)
	}
}

// SetShippingInformation records the address form's current input.
func (c *Controller) SetShippingInformation(info shipping.ShippingInformation) error {
	if err := c.checkEditable(); err != nil {
		return err
	}
	if c.session.Step != StepAddress {
		return ErrWrongStep
	}
	c.session.ShippingInformation = info
	return nil
}

// SelectShippingMethod marks one of the validator-supplied methods as chosen.
func (c *Controller) SelectShippingMethod(id string) error {
	if err := c.checkEditable(); err != nil {
		return err
	}
	if c.session.Step != StepShippingMethod {
		return ErrWrongStep
	}
	m := c.session.method(id)
	if m == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, id)
	}
	c.session.SelectedMethod = m
	return nil
}

// OnSave is invoked by the active step's form. Input that fails the local
// check leaves the flow where it is. A valid address is submitted to the
// external validator; a valid terminal step completes the flow.
func (c *Controller) OnSave(ctx context.Context) error {
	switch {
	case c.session == nil:
		return ErrNotStarted
	case c.state == StateTerminated:
		return nil
	case c.state == StateSubmitting:
		logger.Debug("Save ignored: submission %s outstanding", c.pending)
		return nil
	}

	step := c.session.Step
	verdict := c.gate.Check(step, c.session)
	c.session.Valid = verdict.Valid
	if !verdict.Valid {
		logger.Debug("Local validation failed on %s: invalid=%v", step, verdict.Invalid)
		c.state = StateIdle
		return nil
	}
	c.session.ShippingInformation = *verdict.Payload

	if c.isTerminal(step) {
		c.finish(Result{
			ShippingInformation: c.session.ShippingInformation,
			ShippingMethod:      c.selectedMethod(),
		})
		return nil
	}

	requestID := uuid.NewString()
	payload := bus.ShippingInfoSubmitted{
		RequestID:           requestID,
		ShippingInformation: c.session.ShippingInformation,
	}
	if err := c.channel.Publish(ctx, bus.TypeShippingInfoSubmitted, payload); err != nil {
		c.state = StateIdle
		return fmt.Errorf("submitting shipping info: %w", err)
	}

	c.pending = requestID
	c.progress.activate()
	c.state = StateSubmitting
	c.recorder.SubmissionPublished()
	logger.Debug("Submitted shipping info from %s: request=%s", step, requestID)
	return nil
}

// OnResultEvent applies the validator's verdict. It is a no-op unless a
// submission is outstanding.
func (c *Controller) OnResultEvent(p bus.ShippingInfoProcessed) {
	if c.session == nil || c.state != StateSubmitting {
		logger.Debug("Ignoring shipping info result: no outstanding submission")
		c.recorder.StaleReplyDropped()
		return
	}
	if p.RequestID != "" && p.RequestID != c.pending {
		logger.Debug("Ignoring stale shipping info result %s (outstanding %s)", p.RequestID, c.pending)
		c.recorder.StaleReplyDropped()
		return
	}

	c.pending = ""
	c.progress.deactivate()
	c.recorder.ResultReceived(p.IsShippingInfoValid)

	step := c.session.Step
	c.session.Valid = p.IsShippingInfoValid
	if !p.IsShippingInfoValid {
		logger.Debug("Shipping info rejected on %s", step)
		c.state = StateIdle
		return
	}

	if len(p.ShippingMethods) > 0 {
		c.session.setShippingMethods(p.ShippingMethods, p.DefaultShippingMethod)
	}

	next, ok := c.nextStep(step)
	if !ok {
		c.finish(Result{
			ShippingInformation: c.session.ShippingInformation,
			ShippingMethod:      c.selectedMethod(),
		})
		return
	}

	c.session.Step = next
	c.state = StateIdle
	logger.Debug("Advanced from %s to %s", step, next)
}

// OnErrorEvent surfaces an external failure. The flow stays on the current
// step and the user may save again.
func (c *Controller) OnErrorEvent(p bus.APIException) {
	if c.session == nil || c.state == StateTerminated {
		return
	}

	logger.Warn("API exception on %s: %v", c.session.Step, p.Exception)
	c.pending = ""
	c.progress.deactivate()
	c.state = StateErrorShown
	exception := p.Exception
	c.lastError = &exception
	c.recorder.ErrorReceived(p.Exception.StatusCode)

	if c.alerts != nil {
		c.alerts.DisplayAlert(p.Exception.Message)
	}
}

// DismissError returns from ErrorShown to Idle on the same step.
func (c *Controller) DismissError() {
	if c.state == StateErrorShown {
		c.state = StateIdle
	}
}

// Back returns from the shipping method step to the address step.
func (c *Controller) Back() error {
	if err := c.checkEditable(); err != nil {
		return err
	}
	if c.session.Step == StepAddress {
		return ErrWrongStep
	}
	c.session.Step = StepAddress
	c.state = StateIdle
	return nil
}

// Cancel terminates the flow with a cancellation result.
func (c *Controller) Cancel() {
	if c.session == nil || c.state == StateTerminated {
		return
	}
	logger.Info("Flow cancelled on %s", c.session.Step)
	c.finish(Result{
		ShippingInformation: c.session.ShippingInformation,
		Cancelled:           true,
	})
}

// Close tears the run down: the subscription is released, the progress
// indicator is forced inactive and any later reply is dropped. No completion
// signal is sent. Safe to call more than once.
func (c *Controller) Close() error {
	c.progress.deactivate()
	c.pending = ""
	if c.session != nil {
		c.state = StateTerminated
	}
	return c.release()
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Step returns the current step.
func (c *Controller) Step() Step {
	if c.session == nil {
		return StepAddress
	}
	return c.session.Step
}

// Steps returns the applicable step sequence.
func (c *Controller) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Session returns a copy of the run's accumulated state.
func (c *Controller) Session() Session {
	if c.session == nil {
		return Session{}
	}
	s := *c.session
	s.ShippingMethods = append([]shipping.ShippingMethod(nil), c.session.ShippingMethods...)
	s.SelectedMethod = c.selectedMethod()
	return s
}

// Progress returns the busy indicator.
func (c *Controller) Progress() *Progress {
	return &c.progress
}

// LastError returns the most recent API exception, if any.
func (c *Controller) LastError() *shipping.APIError {
	return c.lastError
}

// Result returns the completion result once the flow has finished.
func (c *Controller) Result() (Result, bool) {
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

// Check runs the validation gate against the current step without
// changing state.
func (c *Controller) Check() Verdict {
	if c.session == nil {
		return Verdict{}
	}
	return c.gate.Check(c.session.Step, c.session)
}

func (c *Controller) checkEditable() error {
	switch {
	case c.session == nil:
		return ErrNotStarted
	case c.state == StateTerminated:
		return ErrTerminated
	case c.state == StateSubmitting:
		return ErrBusy
	}
	return nil
}

func (c *Controller) isTerminal(step Step) bool {
	return len(c.steps) > 0 && c.steps[len(c.steps)-1] == step
}

func (c *Controller) nextStep(step Step) (Step, bool) {
	for i, s := range c.steps {
		if s == step && i+1 < len(c.steps) {
			return c.steps[i+1], true
		}
	}
	return step, false
}

func (c *Controller) selectedMethod() *shipping.ShippingMethod {
	if c.session.SelectedMethod == nil {
		return nil
	}
	m := *c.session.SelectedMethod
	return &m
}

func (c *Controller) finish(res Result) {
	c.state = StateTerminated
	c.pending = ""
	c.progress.deactivate()
	if err := c.release(); err != nil {
		logger.Warn("Failed to release flow subscription: %v", err)
	}

	c.result = &res
	c.recorder.Completed(res.Cancelled)
	logger.Info("Flow finished: cancelled=%t", res.Cancelled)

	if c.onComplete != nil {
		c.onComplete(res)
	}
}

func (c *Controller) release() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Unsubscribe()
}

type nopRecorder struct{}

func (nopRecorder) SubmissionPublished() {}
func (nopRecorder) ResultReceived(bool)  {}
func (nopRecorder) ErrorReceived(int)    {}
func (nopRecorder) StaleReplyDropped()   {}
func (nopRecorder) Completed(bool)       {}
