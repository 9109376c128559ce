package status

import (
	"strings"
	"testing"

	"github.com/stomp-debugger/tui/internal/session"
)

func TestViewStates(t *testing.T) {
	tests := []struct {
		state session.State
		want  string
	}{
		{session.Disconnected, "Disconnected"},
		{session.Connecting, "Connecting..."},
		{session.Connected, "Connected"},
		{session.Disconnecting, "Disconnecting..."},
	}
	for _, tt := range tests {
		m := New()
		m.Width = 100
		m.State = tt.state
		if v := m.View(); !strings.Contains(v, tt.want) {
			t.Errorf("View() for %v should contain %q", tt.state, tt.want)
		}
	}
}

func TestSetSnapshot(t *testing.T) {
	m := New()
	m.Width = 120
	m.SetSnapshot(session.Snapshot{
		State: session.Connected,
		URL:   "ws://localhost:8080/ws",
		Subscriptions: []session.SubscriptionState{
			{Destination: "/a"}, {Destination: "/b"},
		},
		Counters: session.Counters{Sent: 3, Received: 7, Errors: 1},
	})
	v := m.View()
	for _, want := range []string{"ws://localhost:8080/ws", "2 subs", "3 sent", "7 recv", "1 errors"} {
		if !strings.Contains(v, want) {
			t.Errorf("View() should contain %q", want)
		}
	}
}

func TestURLHiddenWhenDisconnected(t *testing.T) {
	m := New()
	m.Width = 120
	m.URL = "ws://old/ws"
	if strings.Contains(m.View(), "ws://old/ws") {
		t.Error("a disconnected bar should not show the previous url")
	}
}
