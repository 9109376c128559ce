// Package subscriptions provides the active subscription list with unread
// badges and per-row actions.
package subscriptions

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stomp-debugger/tui/internal/session"
	"github.com/stomp-debugger/tui/internal/theme"
)

// UnsubscribeMsg asks the parent to unsubscribe from Destination.
type UnsubscribeMsg struct{ Destination string }

// SelectMsg asks the parent to mark Destination read and filter the log
// to it. An empty Destination clears the filter.
type SelectMsg struct{ Destination string }

// KeyMap holds the list-specific key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Select      key.Binding
	ShowAll     key.Binding
	Unsubscribe key.Binding
}

// DefaultKeyMap returns the default list key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "read + filter log"),
		),
		ShowAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "show all"),
		),
		Unsubscribe: key.NewBinding(
			key.WithKeys("u", "x"),
			key.WithHelp("u/x", "unsubscribe"),
		),
	}
}

// Model is the subscription list.
type Model struct {
	keys    KeyMap
	items   []session.SubscriptionState
	cursor  int
	Focused bool
	// Filter is the destination the log is filtered to, if any.
	Filter string
}

// New creates an empty list.
func New() Model {
	return Model{keys: DefaultKeyMap()}
}

// Keys returns the list bindings for help rendering.
func (m Model) Keys() KeyMap {
	return m.keys
}

// SetItems replaces the list, keeping the cursor in range.
func (m *Model) SetItems(items []session.SubscriptionState) {
	m.items = items
	if m.cursor >= len(items) {
		m.cursor = len(items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected returns the destination under the cursor.
func (m Model) Selected() (string, bool) {
	if len(m.items) == 0 {
		return "", false
	}
	return m.items[m.cursor].Destination, true
}

// Update handles key presses while the list has focus.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, m.keys.Up):
		if len(m.items) > 0 {
			m.cursor = (m.cursor - 1 + len(m.items)) % len(m.items)
		}

	case key.Matches(km, m.keys.Down):
		if len(m.items) > 0 {
			m.cursor = (m.cursor + 1) % len(m.items)
		}

	case key.Matches(km, m.keys.Select):
		if dest, ok := m.Selected(); ok {
			return m, emit(SelectMsg{Destination: dest})
		}

	case key.Matches(km, m.keys.ShowAll):
		return m, emit(SelectMsg{})

	case key.Matches(km, m.keys.Unsubscribe):
		if dest, ok := m.Selected(); ok {
			return m, emit(UnsubscribeMsg{Destination: dest})
		}
	}
	return m, nil
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the list inside a bordered box of the given width.
func (m Model) View(width int) string {
	if width < 24 {
		width = 24
	}
	title := theme.StyleHeader.Render(fmt.Sprintf("SUBSCRIPTIONS (%d)", len(m.items)))

	var rows []string
	for i, it := range m.items {
		rows = append(rows, m.renderRow(it, m.Focused && i == m.cursor, width-4))
	}
	if len(rows) == 0 {
		rows = append(rows, theme.StyleDimmed.Render("  (none)"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, rows...)...)
	style := theme.StyleBorder
	if m.Focused {
		style = theme.StyleFocused
	}
	return style.Width(width - 2).Padding(0, 1).Render(content)
}

func (m Model) renderRow(it session.SubscriptionState, isSelected bool, width int) string {
	prefix := "  "
	if isSelected {
		prefix = "> "
	}
	if it.Destination == m.Filter {
		prefix = "▶ "
	}

	badge := ""
	if it.Unread > 0 {
		badge = fmt.Sprintf(" %d new", it.Unread)
	}

	name := it.Destination
	maxLen := width - len(prefix) - len(badge)
	if maxLen < 4 {
		maxLen = 4
	}
	if len(name) > maxLen {
		name = name[:maxLen-1] + "…"
	}

	color := theme.ColorDefault
	if isSelected {
		color = theme.ColorBright
	}
	row := lipgloss.NewStyle().Bold(isSelected).Foreground(color).Render(prefix + name)
	if badge != "" {
		row += lipgloss.NewStyle().Foreground(theme.ColorWarning).Bold(true).Render(badge)
	}
	return row
}
