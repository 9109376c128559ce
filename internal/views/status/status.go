package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/stomp-debugger/tui/internal/session"
	"github.com/stomp-debugger/tui/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	State         session.State
	URL           string
	Subscriptions int
	Counters      session.Counters
	Width         int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// SetSnapshot copies the fields the bar shows from a controller snapshot.
func (m *Model) SetSnapshot(s session.Snapshot) {
	m.State = s.State
	m.URL = s.URL
	m.Subscriptions = len(s.Subscriptions)
	m.Counters = s.Counters
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	state := m.State.String()
	connStr := lipgloss.NewStyle().Foreground(theme.StateColor(state)).Render(theme.StateGlyph(state) + " " + stateLabel(m.State))

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr
	if m.URL != "" && m.State != session.Disconnected {
		content += sep + theme.StyleDimmed.Render(m.URL)
	}

	counts := fmt.Sprintf("%d subs  %d sent  %d recv", m.Subscriptions, m.Counters.Sent, m.Counters.Received)
	content += sep + counts
	if m.Counters.Errors > 0 {
		content += "  " + theme.StyleError.Render(fmt.Sprintf("%d errors", m.Counters.Errors))
	}

	bar := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)

	return bar
}

func stateLabel(s session.State) string {
	switch s {
	case session.Connecting:
		return "Connecting..."
	case session.Connected:
		return "Connected"
	case session.Disconnecting:
		return "Disconnecting..."
	default:
		return "Disconnected"
	}
}
