package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"jarvis-hud/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "q"
	Desc string // e.g. "quit"
}

// StatusBarModel renders a bottom status bar with keybinding hints on the
// left and connection state on the right.
type StatusBarModel struct {
	Hints      []KeyHint
	Connection string // connecting, connected, disconnected
	State      string // visual state name
	Extra      string // last connection problem, if any
	width      int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// ConnectionGlyph returns the symbol for a connection state.
func ConnectionGlyph(conn string) string {
	switch conn {
	case "connected":
		return theme.Symbols.Connected
	case "connecting":
		return theme.Symbols.Connecting
	default:
		return theme.Symbols.Disconnected
	}
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var parts []string
	if m.Extra != "" {
		parts = append(parts, theme.TextError.Render(m.Extra))
	}
	if m.State != "" {
		parts = append(parts, theme.TextAccent.Render(m.State))
	}
	if m.Connection != "" {
		style := theme.TextMuted
		if m.Connection == "connected" {
			style = theme.TextOK
		}
		parts = append(parts, style.Render(ConnectionGlyph(m.Connection)+" "+m.Connection))
	}
	right := strings.Join(parts, "  ")

	// StatusBar pads one cell on each side.
	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}
