// Package confirm renders the disconnect confirmation overlay.
package confirm

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/stomp-debugger/tui/internal/theme"
)

const (
	panelWidth = 56
	labelWidth = 15
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorWarning).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWarning)

	styleFooter = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed)
)

// Model holds what the dialog shows about the session being closed.
type Model struct {
	URL           string
	Subscriptions int
}

// New creates a dialog for the given session.
func New(url string, subscriptions int) Model {
	return Model{URL: url, Subscriptions: subscriptions}
}

// View renders the dialog panel.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Disconnect?") + "\n")
	b.WriteString(strings.Repeat("─", panelWidth-4) + "\n")

	writeRow(&b, "Broker", truncate(m.URL, panelWidth-labelWidth-4))
	writeRow(&b, "Subscriptions", fmt.Sprintf("%d", m.Subscriptions))
	if m.Subscriptions > 0 {
		b.WriteString("\n")
		b.WriteString(styleFooter.Render(fmt.Sprintf("All %d subscription(s) will be released.", m.Subscriptions)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(styleFooter.Render("[y/enter] disconnect  [n/esc] cancel"))

	return stylePanel.Width(panelWidth).Render(b.String())
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label+":") + styleValue.Render(value) + "\n")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
