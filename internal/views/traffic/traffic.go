// Package traffic provides the scrollable STOMP traffic log panel.
package traffic

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/stomp-debugger/tui/internal/logbuf"
	"github.com/stomp-debugger/tui/internal/theme"
)

// Model holds log panel state. Entries are a copy of the session log.
type Model struct {
	Entries []logbuf.Entry
	Offset  int    // scroll offset (from bottom)
	Filter  string // destination filter, empty shows everything
	Focused bool
}

// New creates an empty log panel.
func New() Model {
	return Model{}
}

// SetEntries replaces the visible log. A new newest entry resets the
// scroll to the bottom.
func (m *Model) SetEntries(entries []logbuf.Entry) {
	if lastID(entries) != lastID(m.Entries) {
		m.Offset = 0
	}
	m.Entries = entries
	m.clampOffset()
}

func lastID(entries []logbuf.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].ID
}

// SetFilter restricts the panel to one destination. An empty filter
// shows every entry.
func (m *Model) SetFilter(destination string) {
	m.Filter = destination
	m.Offset = 0
}

// Visible returns the entries that pass the filter, oldest first.
func (m Model) Visible() []logbuf.Entry {
	if m.Filter == "" {
		return m.Entries
	}
	var out []logbuf.Entry
	for _, e := range m.Entries {
		if e.Destination == m.Filter {
			out = append(out, e)
		}
	}
	return out
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	m.clampOffset()
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func (m *Model) clampOffset() {
	max := len(m.Visible()) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// panelStyle returns the border style for the log panel.
func panelStyle(width int, focused bool) lipgloss.Style {
	border := theme.ColorBorder
	if focused {
		border = theme.ColorFocus
	}
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(border)
}

// View renders the log panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 4
	if visibleLines < 3 {
		visibleLines = 3
	}

	visible := m.Visible()
	titleText := " TRAFFIC LOG "
	if m.Filter != "" {
		titleText = fmt.Sprintf(" TRAFFIC LOG [%s] ", m.Filter)
	}
	title := theme.StyleHeader.Render(titleText)
	help := theme.StyleDimmed.Render(fmt.Sprintf("pgup/pgdn:scroll  %d/%d entries", len(visible), logbuf.Capacity))

	if len(visible) == 0 {
		body := theme.StyleDimmed.Render("  No traffic yet.")
		content := lipgloss.JoinVertical(lipgloss.Left, title, body, help)
		return panelStyle(innerW, m.Focused).Render(content)
	}

	// Build visible lines from bottom (minus offset).
	end := len(visible) - m.Offset
	start := end - visibleLines
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, renderEntry(visible[i], innerW))
	}

	body := strings.Join(lines, "\n")
	scrollIndicator := ""
	if m.Offset > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body, scrollIndicator, help)
	return panelStyle(innerW, m.Focused).Render(content)
}

func renderEntry(e logbuf.Entry, width int) string {
	kind := string(e.Kind)
	color := theme.KindColor(kind)
	ts := theme.StyleDimmed.Render(e.Timestamp)
	kindStr := lipgloss.NewStyle().Foreground(color).Width(9).Render(theme.KindGlyph(kind) + " " + kind)

	var dest string
	switch e.Kind {
	case logbuf.KindSent:
		dest = "to: " + e.Destination + "  "
	case logbuf.KindReceived:
		dest = "from: " + e.Destination + "  "
	}

	// Bodies are usually JSON; keep each entry on one line.
	msg := strings.Join(strings.Fields(e.Content), " ")
	room := width - 20 - len(dest)
	if room > 3 && len(msg) > room {
		msg = msg[:room-3] + "..."
	}
	return fmt.Sprintf("%s %s %s%s", ts, kindStr, theme.StyleDimmed.Render(dest), msg)
}
