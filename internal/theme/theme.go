// Package theme provides the Lip Gloss color palette and reusable styles
// for the STOMP debugger TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Connection state colors.
var (
	ColorConnected     = lipgloss.Color("#22c55e")
	ColorConnecting    = lipgloss.Color("#d97706")
	ColorDisconnecting = lipgloss.Color("#7c3aed")
	ColorDisconnected  = lipgloss.Color("#dc2626")
)

// Log kind colors.
var (
	ColorInfo     = lipgloss.Color("#3b82f6")
	ColorSent     = lipgloss.Color("#06b6d4")
	ColorReceived = lipgloss.Color("#a855f7")
	ColorError    = lipgloss.Color("#dc2626")
	ColorDefault  = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorFocus   = lipgloss.Color("#f59e0b")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StateColor returns the color for a connection state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "connected":
		return ColorConnected
	case "connecting":
		return ColorConnecting
	case "disconnecting":
		return ColorDisconnecting
	case "disconnected":
		return ColorDisconnected
	default:
		return ColorDefault
	}
}

// StateGlyph returns a Unicode glyph for a connection state name.
func StateGlyph(state string) string {
	switch state {
	case "connected":
		return "●"
	case "connecting":
		return "◎"
	case "disconnecting":
		return "◌"
	default:
		return "○"
	}
}

// KindColor returns the color for a traffic log kind.
func KindColor(kind string) lipgloss.Color {
	switch kind {
	case "info":
		return ColorInfo
	case "sent":
		return ColorSent
	case "received":
		return ColorReceived
	case "error":
		return ColorError
	default:
		return ColorDefault
	}
}

// KindGlyph returns a short direction marker for a traffic log kind.
func KindGlyph(kind string) string {
	switch kind {
	case "sent":
		return "→"
	case "received":
		return "←"
	case "error":
		return "✗"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleFocused = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorFocus)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
		Foreground(ColorDanger)

	StyleOK = lipgloss.NewStyle().
		Foreground(ColorHealthy)
)
