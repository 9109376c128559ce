package traffic

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stomp-debugger/tui/internal/logbuf"
)

func entries(n int) []logbuf.Entry {
	out := make([]logbuf.Entry, n)
	for i := range out {
		out[i] = logbuf.Entry{
			ID:          fmt.Sprintf("e%d", i),
			Timestamp:   "12:00:00",
			Kind:        logbuf.KindReceived,
			Destination: "/topic/a",
			Content:     fmt.Sprintf("msg %d", i),
		}
	}
	return out
}

func TestScrollUpDown(t *testing.T) {
	m := New()
	m.SetEntries(entries(20))
	if m.Offset != 0 {
		t.Fatal("expected offset 0 after set")
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}

	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}

	m.ScrollDown(10) // shouldn't go below 0
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}
}

func TestScrollUpCapped(t *testing.T) {
	m := New()
	m.SetEntries(entries(5))
	m.ScrollUp(100)
	if m.Offset != 4 { // max is len-1
		t.Errorf("expected offset 4, got %d", m.Offset)
	}
}

func TestNewEntryResetsScroll(t *testing.T) {
	m := New()
	m.SetEntries(entries(10))
	m.ScrollUp(5)

	// Same newest entry: keep the scroll position.
	m.SetEntries(entries(10))
	if m.Offset != 5 {
		t.Errorf("unchanged log should keep offset, got %d", m.Offset)
	}

	m.SetEntries(entries(11))
	if m.Offset != 0 {
		t.Error("a new entry should reset scroll to 0")
	}
}

func TestClearClampsScroll(t *testing.T) {
	m := New()
	m.SetEntries(entries(10))
	m.ScrollUp(8)
	m.SetEntries(nil)
	if m.Offset != 0 {
		t.Errorf("offset = %d after clear, want 0", m.Offset)
	}
}

func TestFilter(t *testing.T) {
	m := New()
	es := entries(3)
	es[1].Destination = "/topic/b"
	es = append(es, logbuf.Entry{ID: "info", Kind: logbuf.KindInfo, Content: "Connected"})
	m.SetEntries(es)

	if got := len(m.Visible()); got != 4 {
		t.Errorf("unfiltered = %d, want 4", got)
	}
	m.SetFilter("/topic/b")
	vis := m.Visible()
	if len(vis) != 1 || vis[0].ID != "e1" {
		t.Errorf("filtered = %+v", vis)
	}
	v := m.View(80, 20)
	if !strings.Contains(v, "[/topic/b]") {
		t.Error("title should name the active filter")
	}
	if strings.Contains(v, "msg 0") {
		t.Error("filtered view should hide other destinations")
	}
	m.SetFilter("")
	if got := len(m.Visible()); got != 4 {
		t.Errorf("cleared filter = %d, want 4", got)
	}
}

func TestViewEmpty(t *testing.T) {
	m := New()
	v := m.View(80, 20)
	if !strings.Contains(v, "No traffic") {
		t.Error("empty view should show 'No traffic' message")
	}
}

func TestViewWithEntries(t *testing.T) {
	m := New()
	m.SetEntries([]logbuf.Entry{
		{ID: "1", Timestamp: "10:00:00", Kind: logbuf.KindSent, Destination: "/app/chat.send", Content: `{"a":1}`},
		{ID: "2", Timestamp: "10:00:01", Kind: logbuf.KindError, Content: "stomp error: denied"},
	})
	v := m.View(100, 20)
	for _, want := range []string{"to: /app/chat.send", `{"a":1}`, "stomp error: denied", "10:00:01"} {
		if !strings.Contains(v, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestMultilineContentFlattened(t *testing.T) {
	e := logbuf.Entry{Kind: logbuf.KindReceived, Destination: "/q", Content: "{\n  \"a\": 1\n}"}
	line := renderEntry(e, 120)
	if strings.Contains(line, "\n") {
		t.Errorf("entry should render on one line: %q", line)
	}
	if !strings.Contains(line, `{ "a": 1 }`) {
		t.Errorf("line = %q", line)
	}
}
