// Package tui provides a Bubble Tea terminal UI for the tilecore engine:
// a live map view with keyboard movement plus a command console.
package tui

import "strings"

// History keeps recent console commands with cursor navigation and prefix
// completion.
type History struct {
	entries []string
	max     int
	cursor  int // -1 = not navigating, 0..len-1 = position in entries
}

// NewHistory creates a history buffer with the given maximum size.
func NewHistory(max int) *History {
	return &History{
		entries: make([]string, 0, max),
		max:     max,
		cursor:  -1,
	}
}

// Push adds a command. Consecutive duplicates are skipped and the oldest
// entry is evicted when full.
func (h *History) Push(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.max {
		h.entries = h.entries[1:]
	}
}

// Len returns the number of stored commands.
func (h *History) Len() int { return len(h.entries) }

// Prev steps to the previous (older) entry, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps to the next (newer) entry. Stepping past the newest returns
// false and leaves navigation.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return "", false
	}
	return h.entries[h.cursor], true
}

// Complete returns the most recent entry that extends prefix.
func (h *History) Complete(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	for i := len(h.entries) - 1; i >= 0; i-- {
		if e := h.entries[i]; e != prefix && strings.HasPrefix(e, prefix) {
			return e, true
		}
	}
	return "", false
}

// ResetCursor leaves navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
}
