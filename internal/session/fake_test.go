package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeTransport records every call the controller makes. Hooks are fired
// explicitly by tests.
type fakeTransport struct {
	mu sync.Mutex

	cfg   TransportConfig
	hooks Hooks

	activated   int
	deactivated int
	activateErr error

	handlers     map[string]func(Message)
	subscribed   []string
	unsubscribed []string
	unsubErr     map[string]error
	subscribeErr error

	published  []string
	publishErr error
}

type fakeSub struct {
	t    *fakeTransport
	dest string
}

func (s *fakeSub) Unsubscribe() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if err := s.t.unsubErr[s.dest]; err != nil {
		return err
	}
	s.t.unsubscribed = append(s.t.unsubscribed, s.dest)
	delete(s.t.handlers, s.dest)
	return nil
}

func (f *fakeTransport) Activate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated++
	return f.activateErr
}

func (f *fakeTransport) Deactivate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated++
	return nil
}

func (f *fakeTransport) Subscribe(destination string, onMessage func(Message)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.handlers[destination] = onMessage
	f.subscribed = append(f.subscribed, destination)
	return &fakeSub{t: f, dest: destination}, nil
}

func (f *fakeTransport) Publish(destination, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, destination+" "+body)
	return nil
}

// deliver simulates an inbound MESSAGE frame.
func (f *fakeTransport) deliver(destination, body string) {
	f.mu.Lock()
	h := f.handlers[destination]
	f.mu.Unlock()
	if h != nil {
		h(Message{Destination: destination, Body: body})
	}
}

func (f *fakeTransport) counts() (activated, deactivated int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activated, f.deactivated
}

type fakeFactory struct {
	mu   sync.Mutex
	made []*fakeTransport
	// prepare, when set, customises each transport before it is returned.
	prepare func(*fakeTransport)
}

func (ff *fakeFactory) build(cfg TransportConfig, hooks Hooks) Transport {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	t := &fakeTransport{
		cfg:      cfg,
		hooks:    hooks,
		handlers: make(map[string]func(Message)),
		unsubErr: make(map[string]error),
	}
	if ff.prepare != nil {
		ff.prepare(t)
	}
	ff.made = append(ff.made, t)
	return t
}

func (ff *fakeFactory) last(t *testing.T) *fakeTransport {
	t.Helper()
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if len(ff.made) == 0 {
		t.Fatal("no transport was built")
	}
	return ff.made[len(ff.made)-1]
}

const testURL = "http://localhost:8080/ws/chat"

func newTestController(ff *fakeFactory) *Controller {
	return NewController(Options{
		Factory:         ff.build,
		DisconnectGrace: 20 * time.Millisecond,
	})
}

// connected returns a controller whose live transport has reported CONNECTED.
func connected(t *testing.T) (*Controller, *fakeFactory, *fakeTransport) {
	t.Helper()
	ff := &fakeFactory{}
	c := newTestController(ff)
	if err := c.Connect(testURL, "secret"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	tr := ff.last(t)
	tr.hooks.OnConnect()
	if got := c.State(); got != Connected {
		t.Fatalf("state = %v, want connected", got)
	}
	return c, ff, tr
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect to finish")
	}
}

var errBoom = errors.New("boom")
