package session

import (
	"fmt"

	"github.com/stomp-debugger/tui/internal/logbuf"
)

// SubscriptionState is the presentation view of one subscription.
type SubscriptionState struct {
	Destination string
	Unread      int
}

type tracked struct {
	destination string
	unread      int
	handle      Subscription
	released    bool
}

// Registry tracks active subscriptions in insertion order together with
// their unread counters. It is not safe for concurrent use; the controller
// serialises access.
type Registry struct {
	log     *logbuf.Buffer
	order   []string
	entries map[string]*tracked
}

// NewRegistry creates an empty registry that records into log.
func NewRegistry(log *logbuf.Buffer) *Registry {
	return &Registry{
		log:     log,
		entries: make(map[string]*tracked),
	}
}

// Subscribe registers destination with the transport and starts tracking it.
// A destination that is already tracked is rejected with
// ErrDuplicateSubscription and nothing changes.
func (r *Registry) Subscribe(t Transport, destination string, onMessage func(Message)) error {
	if destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidConfig)
	}
	if _, ok := r.entries[destination]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSubscription, destination)
	}
	handle, err := t.Subscribe(destination, onMessage)
	if err != nil {
		r.log.Append(logbuf.KindError, destination, fmt.Sprintf("Subscribe failed: %v", err))
		return fmt.Errorf("subscribe %s: %w", destination, err)
	}
	r.entries[destination] = &tracked{destination: destination, handle: handle}
	r.order = append(r.order, destination)
	r.log.Append(logbuf.KindInfo, destination, "Subscribed to "+destination)
	return nil
}

// Deliver records an inbound message for destination and bumps its unread
// counter. Messages for untracked destinations are dropped.
func (r *Registry) Deliver(destination, body string) bool {
	e, ok := r.entries[destination]
	if !ok {
		return false
	}
	r.log.Append(logbuf.KindReceived, destination, body)
	e.unread++
	return true
}

// Unsubscribe drops destination. A transport failure is logged but the
// local entry is removed regardless.
func (r *Registry) Unsubscribe(destination string) error {
	e, ok := r.entries[destination]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubscription, destination)
	}
	if !e.released {
		r.release(e)
	}
	r.remove(destination)
	r.log.Append(logbuf.KindInfo, destination, "Unsubscribed from "+destination)
	return nil
}

// ReleaseAll unsubscribes every handle at the transport level while keeping
// the local entries. It returns the number of failures.
func (r *Registry) ReleaseAll() int {
	failed := 0
	for _, dest := range r.order {
		e := r.entries[dest]
		if e.released {
			continue
		}
		if !r.release(e) {
			failed++
		}
	}
	return failed
}

func (r *Registry) release(e *tracked) bool {
	e.released = true
	if e.handle == nil {
		return true
	}
	if err := e.handle.Unsubscribe(); err != nil {
		r.log.Append(logbuf.KindError, e.destination,
			fmt.Sprintf("%v: %s: %v", ErrUnsubscribe, e.destination, err))
		return false
	}
	return true
}

func (r *Registry) remove(destination string) {
	delete(r.entries, destination)
	for i, d := range r.order {
		if d == destination {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Acknowledge resets the unread counter for destination.
func (r *Registry) Acknowledge(destination string) bool {
	e, ok := r.entries[destination]
	if !ok {
		return false
	}
	e.unread = 0
	return true
}

// Clear forgets every subscription without touching the transport.
func (r *Registry) Clear() {
	r.entries = make(map[string]*tracked)
	r.order = nil
}

// Has reports whether destination is tracked.
func (r *Registry) Has(destination string) bool {
	_, ok := r.entries[destination]
	return ok
}

// Len returns the number of tracked subscriptions.
func (r *Registry) Len() int {
	return len(r.order)
}

// List returns the subscriptions in display order.
func (r *Registry) List() []SubscriptionState {
	out := make([]SubscriptionState, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, SubscriptionState{Destination: d, Unread: r.entries[d].unread})
	}
	return out
}
