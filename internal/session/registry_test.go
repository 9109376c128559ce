package session

import (
	"errors"
	"testing"

	"github.com/stomp-debugger/tui/internal/logbuf"
)

func newTestRegistry() (*Registry, *fakeTransport, *logbuf.Buffer) {
	buf := logbuf.New()
	ff := &fakeFactory{}
	tr := ff.build(TransportConfig{}, Hooks{}).(*fakeTransport)
	return NewRegistry(buf), tr, buf
}

func TestRegistrySubscribeRequiresDestination(t *testing.T) {
	r, tr, _ := newTestRegistry()
	if err := r.Subscribe(tr, "", nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if r.Len() != 0 {
		t.Error("nothing should be tracked")
	}
}

func TestRegistryTransportSubscribeFailure(t *testing.T) {
	buf := logbuf.New()
	r := NewRegistry(buf)
	tr := (&fakeFactory{}).build(TransportConfig{}, Hooks{}).(*fakeTransport)
	tr.subscribeErr = errBoom

	if err := r.Subscribe(tr, "/topic/a", func(Message) {}); !errors.Is(err, errBoom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if r.Has("/topic/a") {
		t.Error("failed subscribe should not be tracked")
	}
	if entries := buf.Entries(); len(entries) != 1 || entries[0].Kind != logbuf.KindError {
		t.Errorf("expected one error entry, got %+v", entries)
	}
}

func TestRegistryReleaseAllKeepsEntries(t *testing.T) {
	buf := logbuf.New()
	r := NewRegistry(buf)
	tr := (&fakeFactory{}).build(TransportConfig{}, Hooks{}).(*fakeTransport)
	for _, d := range []string{"/a", "/b", "/c"} {
		if err := r.Subscribe(tr, d, func(Message) {}); err != nil {
			t.Fatal(err)
		}
	}
	tr.unsubErr["/b"] = errBoom

	if failed := r.ReleaseAll(); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if r.Len() != 3 {
		t.Errorf("entries = %d, want 3", r.Len())
	}
	// A second release does not touch the transport again.
	r.ReleaseAll()
	if len(tr.unsubscribed) != 2 {
		t.Errorf("unsubscribed = %v", tr.unsubscribed)
	}
	// Removing a released entry skips the transport call.
	if err := r.Unsubscribe("/a"); err != nil {
		t.Fatal(err)
	}
	if len(tr.unsubscribed) != 2 {
		t.Errorf("released entry unsubscribed twice: %v", tr.unsubscribed)
	}

	r.Clear()
	if r.Len() != 0 || len(r.List()) != 0 {
		t.Error("clear should remove everything")
	}
}

func TestRegistryDeliverUnknownDestination(t *testing.T) {
	buf := logbuf.New()
	r := NewRegistry(buf)
	if r.Deliver("/nowhere", "{}") {
		t.Error("deliver to an untracked destination should be dropped")
	}
	if buf.Len() != 0 {
		t.Error("dropped message should not be logged")
	}
	if r.Acknowledge("/nowhere") {
		t.Error("acknowledge of an untracked destination should report false")
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		body  string
		valid bool
	}{
		{`{"receiverId": 7, "content": "Hello world!"}`, true},
		{`[1, 2, 3]`, true},
		{`"text"`, true},
		{`42`, true},
		{`{not json`, false},
		{``, false},
	}
	for _, tt := range tests {
		err := ValidatePayload(tt.body)
		if tt.valid && err != nil {
			t.Errorf("ValidatePayload(%q) = %v, want nil", tt.body, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("ValidatePayload(%q) = %v, want ErrInvalidPayload", tt.body, err)
		}
	}
}

func TestPublisherRequiresDestination(t *testing.T) {
	buf := logbuf.New()
	p := NewPublisher(buf)
	tr := (&fakeFactory{}).build(TransportConfig{}, Hooks{}).(*fakeTransport)
	if err := p.Publish(tr, "", "{}"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if len(tr.published) != 0 || buf.Len() != 0 {
		t.Error("rejected publish should have no side effects")
	}
}
