// Package headless drives a wizard run without a terminal UI: it saves the
// prepopulated address, waits for the validator and picks a shipping method.
package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/logger"
)

var (
	// ErrNoShippingInfo is returned when the address is incomplete.
	ErrNoShippingInfo = errors.New("shipping information incomplete")
	// ErrRejected is returned when the validator declines the address.
	ErrRejected = errors.New("shipping information rejected by validator")
)

// Options configures a headless run.
type Options struct {
	Configuration flow.Configuration
	MethodID      string        // Shipping method to pick; empty keeps the preselected one
	Timeout       time.Duration // Overall deadline (0 = none)
	Retries       int           // Saves to retry after an API exception
	Recorder      flow.Recorder // Optional
	Out           io.Writer     // Progress output (nil = discard)
}

type alertPrinter struct {
	out      io.Writer
	messages []string
}

func (a *alertPrinter) DisplayAlert(message string) {
	a.messages = append(a.messages, message)
	fmt.Fprintf(a.out, "! %s\n", message)
}

// Run completes one wizard run over ch and returns the final result.
func Run(ctx context.Context, ch flow.EventChannel, opts Options) (flow.Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	var result *flow.Result
	alerts := &alertPrinter{out: out}
	ctrl := flow.NewController(flow.ControllerConfig{
		Channel:    ch,
		Alerts:     alerts,
		Recorder:   opts.Recorder,
		OnComplete: func(r flow.Result) { result = &r },
	})
	if err := ctrl.Start(opts.Configuration); err != nil {
		return flow.Result{}, err
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			logger.Warn("Closing headless flow: %v", err)
		}
	}()

	if v := ctrl.Check(); !v.Valid {
		return flow.Result{}, fmt.Errorf("%w: missing or invalid %s", ErrNoShippingInfo, fieldList(v))
	}

	fmt.Fprintf(out, "%s\n", ctrl.Step().Title())
	if err := ctrl.OnSave(ctx); err != nil {
		return flow.Result{}, err
	}

	retries := opts.Retries
	for result == nil {
		if ctrl.State() == flow.StateSubmitting {
			fmt.Fprintln(out, "Validating shipping information...")
		}

		select {
		case <-ctx.Done():
			return flow.Result{}, fmt.Errorf("waiting for validator: %w", ctx.Err())
		case evt, ok := <-ctrl.Events():
			if !ok {
				return flow.Result{}, errors.New("event channel closed")
			}
			ctrl.Handle(evt)
		}

		switch ctrl.State() {
		case flow.StateSubmitting, flow.StateTerminated:
			continue

		case flow.StateErrorShown:
			apiErr := ctrl.LastError()
			if retries <= 0 {
				return flow.Result{}, fmt.Errorf("submitting shipping information: %w", apiErr)
			}
			retries--
			logger.Info("Retrying after API exception (%d retries left)", retries)
			ctrl.DismissError()
			if err := ctrl.OnSave(ctx); err != nil {
				return flow.Result{}, err
			}

		case flow.StateIdle:
			if ctrl.Step() == flow.StepAddress {
				return flow.Result{}, ErrRejected
			}
			if err := chooseMethod(ctrl, opts.MethodID, out); err != nil {
				return flow.Result{}, err
			}
			if err := ctrl.OnSave(ctx); err != nil {
				return flow.Result{}, err
			}
		}
	}

	return *result, nil
}

func chooseMethod(ctrl *flow.Controller, id string, out io.Writer) error {
	fmt.Fprintf(out, "%s\n", ctrl.Step().Title())
	if id != "" {
		if err := ctrl.SelectShippingMethod(id); err != nil {
			return err
		}
	}

	s := ctrl.Session()
	if s.SelectedMethod == nil {
		return errors.New("validator offered no shipping methods")
	}
	fmt.Fprintf(out, "Selected %s (%s)\n", s.SelectedMethod.Label, s.SelectedMethod.DisplayAmount())
	return nil
}

func fieldList(v flow.Verdict) string {
	names := make([]string, len(v.Invalid))
	for i, f := range v.Invalid {
		names[i] = f.Label()
	}
	return strings.Join(names, ", ")
}
