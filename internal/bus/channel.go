package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/shipflow/internal/logger"
	"github.com/nats-io/nats.go"
)

// Channel publishes and subscribes to the events of one run.
// It is safe for concurrent use by multiple producers.
type Channel struct {
	nc        *nats.Conn
	run       string
	inboxSize int
}

// NewChannel creates a channel for the given run on an existing connection.
func NewChannel(nc *nats.Conn, run string) *Channel {
	return &Channel{
		nc:        nc,
		run:       run,
		inboxSize: DefaultInboxSize,
	}
}

// Run returns the run identifier the channel is scoped to.
func (c *Channel) Run() string {
	return c.run
}

// Publish wraps payload in an envelope and publishes it. Publishing does not
// wait for any subscriber.
func (c *Channel) Publish(ctx context.Context, typ Type, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	evt, err := NewEvent(c.run, typ, payload)
	if err != nil {
		logger.Error("Failed to build event: %v", err)
		return err
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := SubjectForEvent(c.run, typ)
	logger.Debug("Publishing event: run=%s type=%s id=%s", c.run, typ, evt.ID)

	if err := c.nc.Publish(subject, data); err != nil {
		logger.Error("Failed to publish event to subject %s: %v", subject, err)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe registers interest in the given event types, or in every event of
// the run when none are given. Each call returns an independent subscription,
// so several subscribers all receive every matching event.
func (c *Channel) Subscribe(types ...Type) (*Subscription, error) {
	subjects := []string{SubjectForRun(c.run)}
	if len(types) > 0 {
		subjects = subjects[:0]
		for _, typ := range types {
			subjects = append(subjects, SubjectForEvent(c.run, typ))
		}
	}

	var subs []*nats.Subscription
	release := func() error {
		var errs []error
		for _, sub := range subs {
			if err := sub.Unsubscribe(); err != nil && !isClosedErr(err) {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	s := NewSubscription(c.inboxSize, release)
	handler := func(msg *nats.Msg) {
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.Warn("Skipping malformed event on %s: %v", msg.Subject, err)
			return
		}
		if !s.Deliver(evt) {
			logger.Debug("Dropped %s event %s after unsubscribe", evt.Type, evt.ID)
		}
	}

	for _, subject := range subjects {
		sub, err := c.nc.Subscribe(subject, handler)
		if err != nil {
			_ = s.Unsubscribe()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	// Make sure the server has registered interest before anyone publishes.
	if err := c.nc.Flush(); err != nil {
		_ = s.Unsubscribe()
		return nil, fmt.Errorf("failed to flush subscriptions: %w", err)
	}

	logger.Debug("Subscribed to %v", subjects)
	return s, nil
}

func isClosedErr(err error) bool {
	return errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrBadSubscription) ||
		errors.Is(err, nats.ErrConnectionDraining)
}
