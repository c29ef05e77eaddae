package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// mapDisplayName derives a human-readable name from a map name.
// "route_1" -> "Route 1", "player-house" -> "Player House".
func mapDisplayName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width inverted status line showing the
// map, the player's tile and facing, the input mode and the frame count.
func (m Model) renderStatusBar() string {
	s := m.engine.Session

	left := " (no map)"
	if mp := s.Map(); mp != nil {
		left = " " + mapDisplayName(mp.Name)
	}
	if p, ok := s.Player(); ok {
		t := p.Tile()
		left += fmt.Sprintf(" | (%d, %d) %s", t.X, t.Y, p.Facing())
	}

	mode := "MAP"
	if m.typing {
		mode = "CMD"
	}
	right := fmt.Sprintf("%s | F:%d ", mode, s.State.Frame)
	if n := len(m.engine.Events.Running()); n > 0 {
		candidate := fmt.Sprintf("Events: %d | %s", n, right)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
