// Package validator is a stand-in for the remote service that checks a
// submitted address and quotes shipping methods. It listens for submissions
// on a run's event channel and answers each one with a verdict, or with an
// API exception when configured to fail.
package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/shipflow/internal/bus"
	"github.com/mark3labs/shipflow/internal/logger"
	"github.com/mark3labs/shipflow/internal/shipping"
)

// Channel is the part of bus.Channel the validator uses.
type Channel interface {
	Publish(ctx context.Context, typ bus.Type, payload any) error
	Subscribe(types ...bus.Type) (*bus.Subscription, error)
}

// Recorder observes each answer.
type Recorder interface {
	RecordValidation(outcome string, duration time.Duration)
}

// Config controls the validator's answers.
type Config struct {
	// AllowedCountries restricts shippable countries. Empty allows all.
	AllowedCountries []string
	// ShippingMethods are offered for every valid address.
	ShippingMethods []shipping.ShippingMethod
	// Delay is applied before answering.
	Delay time.Duration
	// FailMessage, when set, answers the first submission with an API
	// exception carrying FailStatus.
	FailMessage string
	FailStatus  int
}

// Validator answers shipping info submissions.
type Validator struct {
	ch       Channel
	cfg      Config
	recorder Recorder
	allowed  map[string]bool
	failed   bool
}

// New creates a validator. recorder may be nil.
func New(ch Channel, cfg Config, recorder Recorder) *Validator {
	allowed := make(map[string]bool, len(cfg.AllowedCountries))
	for _, c := range cfg.AllowedCountries {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return &Validator{
		ch:       ch,
		cfg:      cfg,
		recorder: recorder,
		allowed:  allowed,
	}
}

// Run answers submissions until ctx is cancelled.
func (v *Validator) Run(ctx context.Context) error {
	sub, err := v.Listen()
	if err != nil {
		return err
	}
	return v.Serve(ctx, sub)
}

// Listen subscribes to submissions. Once it returns, no submission published
// afterwards is missed.
func (v *Validator) Listen() (*bus.Subscription, error) {
	sub, err := v.ch.Subscribe(bus.TypeShippingInfoSubmitted)
	if err != nil {
		return nil, fmt.Errorf("subscribing to submissions: %w", err)
	}
	return sub, nil
}

// Serve answers submissions delivered to sub until ctx is cancelled, then
// releases the subscription.
func (v *Validator) Serve(ctx context.Context, sub *bus.Subscription) error {
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn("Validator unsubscribe failed: %v", err)
		}
	}()

	logger.Info("Validator listening: countries=%v methods=%d delay=%s", v.cfg.AllowedCountries, len(v.cfg.ShippingMethods), v.cfg.Delay)

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := v.handle(ctx, evt); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("Validator failed to answer %s: %v", evt.ID, err)
			}
		}
	}
}

func (v *Validator) handle(ctx context.Context, evt bus.Event) error {
	start := time.Now()

	var req bus.ShippingInfoSubmitted
	if err := evt.Decode(&req); err != nil {
		v.record("error", start)
		return err
	}

	if v.cfg.Delay > 0 {
		timer := time.NewTimer(v.cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if v.cfg.FailMessage != "" && !v.failed {
		v.failed = true
		v.record("error", start)
		logger.Debug("Validator failing request %s on purpose", req.RequestID)
		return v.ch.Publish(ctx, bus.TypeAPIException, bus.APIException{
			Exception: shipping.APIError{
				Message:    v.cfg.FailMessage,
				RequestID:  req.RequestID,
				StatusCode: v.cfg.FailStatus,
			},
		})
	}

	reply := v.Evaluate(req)
	outcome := "invalid"
	if reply.IsShippingInfoValid {
		outcome = "valid"
	}
	v.record(outcome, start)
	logger.Debug("Validator answered %s: %s", req.RequestID, outcome)

	return v.ch.Publish(ctx, bus.TypeShippingInfoProcessed, reply)
}

// Evaluate computes the verdict for a submission.
func (v *Validator) Evaluate(req bus.ShippingInfoSubmitted) bus.ShippingInfoProcessed {
	reply := bus.ShippingInfoProcessed{RequestID: req.RequestID}

	country := strings.ToUpper(strings.TrimSpace(req.ShippingInformation.Address.Country))
	if country == "" || (len(v.allowed) > 0 && !v.allowed[country]) {
		return reply
	}

	reply.IsShippingInfoValid = true
	reply.ShippingMethods = append([]shipping.ShippingMethod(nil), v.cfg.ShippingMethods...)
	return reply
}

func (v *Validator) record(outcome string, start time.Time) {
	if v.recorder != nil {
		v.recorder.RecordValidation(outcome, time.Since(start))
	}
}
