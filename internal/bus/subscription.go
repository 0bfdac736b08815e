package bus

import (
	"sync"
)

// DefaultInboxSize is the hand-off buffer used by Channel.Subscribe.
const DefaultInboxSize = 64

// Subscription queues deliveries from any number of producer goroutines into
// an inbox drained by a single consumer. The queue is unbounded: Deliver never
// blocks and never discards while the subscription is open. Once
// unsubscribed, pending events are discarded, the inbox is closed and further
// deliveries are dropped.
type Subscription struct {
	mu      sync.Mutex
	queue   []Event
	closed  bool
	release func() error

	signal chan struct{} // wakes the pump after an enqueue
	done   chan struct{}
	inbox  chan Event
}

// NewSubscription creates a subscription whose inbox buffers size events
// ahead of the consumer. release is called once on Unsubscribe to detach
// from the transport.
func NewSubscription(size int, release func() error) *Subscription {
	if size <= 0 {
		size = DefaultInboxSize
	}
	s := &Subscription{
		release: release,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		inbox:   make(chan Event, size),
	}
	go s.pump()
	return s
}

// Deliver enqueues an event without blocking. It reports false only when the
// subscription is closed.
func (s *Subscription) Deliver(evt Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
	return true
}

// pump moves queued events into the inbox in delivery order.
func (s *Subscription) pump() {
	defer close(s.inbox)
	for {
		evt, ok := s.next()
		if !ok {
			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.inbox <- evt:
		case <-s.done:
			return
		}
	}
}

func (s *Subscription) next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return Event{}, false
	}
	evt := s.queue[0]
	s.queue[0] = Event{}
	s.queue = s.queue[1:]
	return evt, true
}

// Events returns the inbox. It is closed shortly after Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.inbox
}

// Pending returns how many events are queued behind the inbox buffer.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Closed reports whether Unsubscribe has been called.
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Unsubscribe detaches from the transport and closes the inbox.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.queue = nil
	close(s.done)
	release := s.release
	s.release = nil
	s.mu.Unlock()

	if release != nil {
		return release()
	}
	return nil
}
