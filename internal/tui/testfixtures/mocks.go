// Package testfixtures provides mock implementations and test utilities for TUI testing.
//
// This file contains mock implementations for the flow's collaborators:
//   - MockEventChannel: Records publications and hands out subscriptions the test feeds by hand
//   - MockAlerts: Records alerts displayed by the flow
//
// All mocks are thread-safe and provide verification methods for assertions in tests.
//
// Example usage:
//
//	func TestMyComponent(t *testing.T) {
//	    ch := testfixtures.NewMockEventChannel()
//	    ctrl := flow.NewController(flow.ControllerConfig{Channel: ch, Alerts: testfixtures.NewMockAlerts()})
//	    require.NoError(t, ctrl.Start(testfixtures.RequiredConfiguration()))
//
//	    // Drive the flow, then reply:
//	    ch.Reply(testfixtures.Processed(ch.LastRequestID(), true))
//	}
package testfixtures

import (
	"context"
	"sync"

	"github.com/mark3labs/shipflow/internal/bus"
)

// MockEventChannel is a controllable flow.EventChannel backed by real
// subscriptions but no transport.
type MockEventChannel struct {
	mu sync.Mutex

	// Published submissions are recorded here
	Submissions []bus.ShippingInfoSubmitted
	// Error to return from Publish
	PublishError error
	// Error to return from Subscribe
	SubscribeError error

	subs     []*bus.Subscription
	released int
}

// NewMockEventChannel creates an empty mock channel.
func NewMockEventChannel() *MockEventChannel {
	return &MockEventChannel{}
}

// Publish records submissions. Other event types are accepted and ignored.
func (m *MockEventChannel) Publish(_ context.Context, _ bus.Type, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return m.PublishError
	}
	if s, ok := payload.(bus.ShippingInfoSubmitted); ok {
		m.Submissions = append(m.Submissions, s)
	}
	return nil
}

// Subscribe returns a new subscription fed by Reply.
func (m *MockEventChannel) Subscribe(_ ...bus.Type) (*bus.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SubscribeError != nil {
		return nil, m.SubscribeError
	}
	sub := bus.NewSubscription(bus.DefaultInboxSize, func() error {
		m.mu.Lock()
		m.released++
		m.mu.Unlock()
		return nil
	})
	m.subs = append(m.subs, sub)
	return sub, nil
}

// Reply delivers evt to every open subscription.
func (m *MockEventChannel) Reply(evt bus.Event) {
	m.mu.Lock()
	subs := append([]*bus.Subscription(nil), m.subs...)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Deliver(evt)
	}
}

// LastRequestID returns the request ID of the latest submission.
func (m *MockEventChannel) LastRequestID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Submissions) == 0 {
		return ""
	}
	return m.Submissions[len(m.Submissions)-1].RequestID
}

// SubmissionCount returns the number of recorded submissions.
func (m *MockEventChannel) SubmissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submissions)
}

// Released returns how many subscriptions were released.
func (m *MockEventChannel) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// MockAlerts records alerts displayed by the flow.
type MockAlerts struct {
	mu       sync.Mutex
	messages []string
}

// NewMockAlerts creates an empty alert recorder.
func NewMockAlerts() *MockAlerts {
	return &MockAlerts{}
}

// DisplayAlert records message.
func (m *MockAlerts) DisplayAlert(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
}

// Messages returns the recorded alerts.
func (m *MockAlerts) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}
