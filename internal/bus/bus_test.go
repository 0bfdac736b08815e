package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/shipflow/internal/shipping"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConn starts an embedded server and returns a connection to it.
// Both are torn down when the test ends.
func newTestConn(t *testing.T) *nats.Conn {
	t.Helper()

	ns, err := StartEmbedded()
	require.NoError(t, err, "failed to start NATS")

	nc, err := ConnectInProcess(ns)
	require.NoError(t, err, "failed to connect to NATS")

	t.Cleanup(func() {
		_ = Shutdown(nc, ns)
	})
	return nc
}

func receive(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case evt, ok := <-s.Events():
		require.True(t, ok, "inbox closed unexpectedly")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertQuiet(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case evt, ok := <-s.Events():
		if ok {
			t.Fatalf("unexpected event %s", evt.Type)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func exampleInfo() shipping.ShippingInformation {
	return shipping.ShippingInformation{
		Address: shipping.Address{
			City:       "San Francisco",
			Country:    "US",
			Line1:      "123 Market St",
			Line2:      "#345",
			PostalCode: "94107",
			State:      "CA",
		},
		Name:  "Fake Name",
		Phone: "6504604645",
	}
}

func TestPublishSubscribe(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	sub, err := ch.Subscribe(TypeShippingInfoSubmitted)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	payload := ShippingInfoSubmitted{RequestID: "req-1", ShippingInformation: exampleInfo()}
	require.NoError(t, ch.Publish(context.Background(), TypeShippingInfoSubmitted, payload))

	evt := receive(t, sub)
	assert.Equal(t, TypeShippingInfoSubmitted, evt.Type)
	assert.Equal(t, "checkout", evt.Run)
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.Timestamp.IsZero())

	var got ShippingInfoSubmitted
	require.NoError(t, evt.Decode(&got))
	assert.Equal(t, payload, got)
}

func TestSubscribeFiltersByType(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	sub, err := ch.Subscribe(TypeAPIException)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ctx := context.Background()
	require.NoError(t, ch.Publish(ctx, TypeShippingInfoProcessed, ShippingInfoProcessed{IsShippingInfoValid: true}))
	require.NoError(t, ch.Publish(ctx, TypeAPIException, APIException{
		Exception: shipping.APIError{Message: "Something's wrong", RequestID: "ID123", StatusCode: 400},
	}))

	evt := receive(t, sub)
	assert.Equal(t, TypeAPIException, evt.Type)
	assertQuiet(t, sub)
}

func TestSubscribeAllTypesInOrder(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	sub, err := ch.Subscribe()
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ctx := context.Background()
	for _, typ := range Types {
		require.NoError(t, ch.Publish(ctx, typ, struct{}{}))
	}

	for _, want := range Types {
		assert.Equal(t, want, receive(t, sub).Type)
	}
}

func TestFanOutToMultipleSubscribers(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	first, err := ch.Subscribe(TypeShippingInfoSubmitted)
	require.NoError(t, err)
	defer first.Unsubscribe()

	second, err := ch.Subscribe(TypeShippingInfoSubmitted)
	require.NoError(t, err)
	defer second.Unsubscribe()

	require.NoError(t, ch.Publish(context.Background(), TypeShippingInfoSubmitted, ShippingInfoSubmitted{RequestID: "r"}))

	assert.Equal(t, TypeShippingInfoSubmitted, receive(t, first).Type)
	assert.Equal(t, TypeShippingInfoSubmitted, receive(t, second).Type)
}

func TestRunsAreIsolated(t *testing.T) {
	nc := newTestConn(t)
	a := NewChannel(nc, "run-a")
	b := NewChannel(nc, "run-b")

	sub, err := a.Subscribe()
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(context.Background(), TypeAPIException, APIException{}))
	assertQuiet(t, sub)
}

func TestUnsubscribeClosesInboxAndDropsLateEvents(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	sub, err := ch.Subscribe()
	require.NoError(t, err)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe(), "second unsubscribe should be a no-op")
	assert.True(t, sub.Closed())

	require.NoError(t, ch.Publish(context.Background(), TypeShippingInfoProcessed, ShippingInfoProcessed{}))

	_, ok := <-sub.Events()
	assert.False(t, ok, "inbox should be closed")
	assert.False(t, sub.Deliver(Event{Type: TypeAPIException}))
}

func TestConcurrentPublishers(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	sub, err := ch.Subscribe(TypeAPIException)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	const producers = 4
	const perProducer = 8

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, ch.Publish(context.Background(), TypeAPIException, APIException{}))
			}
		}()
	}
	wg.Wait()

	for i := 0; i < producers*perProducer; i++ {
		receive(t, sub)
	}
}

func TestPublishHonorsCancelledContext(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ch.Publish(ctx, TypeAPIException, APIException{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSubscriptionQueuesBeyondInboxBuffer(t *testing.T) {
	s := NewSubscription(1, nil)
	defer s.Unsubscribe()

	for _, id := range []string{"1", "2", "3", "4"} {
		assert.True(t, s.Deliver(Event{ID: id}))
	}

	for _, want := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, want, receive(t, s).ID)
	}
	assert.Zero(t, s.Pending())
}

func TestSubscriptionUnsubscribeDiscardsPending(t *testing.T) {
	s := NewSubscription(1, nil)
	for i := 0; i < 10; i++ {
		require.True(t, s.Deliver(Event{Type: TypeAPIException}))
	}

	require.NoError(t, s.Unsubscribe())
	assert.Zero(t, s.Pending())

	drained := 0
	for range s.Events() {
		drained++
	}
	assert.LessOrEqual(t, drained, 2, "only the inbox buffer and the pump hand-off may remain")
}

func TestVerdictSurvivesExceptionBurst(t *testing.T) {
	nc := newTestConn(t)
	ch := NewChannel(nc, "checkout")

	sub, err := ch.Subscribe()
	require.NoError(t, err)
	defer sub.Unsubscribe()

	const burst = DefaultInboxSize * 3
	for i := 0; i < burst; i++ {
		require.NoError(t, ch.Publish(context.Background(), TypeAPIException, APIException{}))
	}
	require.NoError(t, ch.Publish(context.Background(), TypeShippingInfoProcessed, ShippingInfoProcessed{
		RequestID:           "req-1",
		IsShippingInfoValid: true,
	}))

	for i := 0; i < burst; i++ {
		assert.Equal(t, TypeAPIException, receive(t, sub).Type)
	}

	evt := receive(t, sub)
	require.Equal(t, TypeShippingInfoProcessed, evt.Type)
	var p ShippingInfoProcessed
	require.NoError(t, evt.Decode(&p))
	assert.Equal(t, "req-1", p.RequestID)
	assert.True(t, p.IsShippingInfoValid)
}

func TestRunID(t *testing.T) {
	assert.Equal(t, "spring-checkout", RunID("Spring Checkout"))
	assert.Equal(t, "order-42", RunID("order.42"))

	generated := RunID("  ")
	assert.Regexp(t, `^run-[0-9a-f]{8}$`, generated)
	assert.NotEqual(t, generated, RunID(""))
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "shipflow.abc.>", SubjectForRun("abc"))
	assert.Equal(t, "shipflow.abc.api_exception", SubjectForEvent("abc", TypeAPIException))
}
