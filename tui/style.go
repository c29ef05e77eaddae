package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	stylePosition = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleMapFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

// glyphStyles colour the cells of a rendered map.
var glyphStyles = map[rune]lipgloss.Style{
	'@': lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
	'o': lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
	'#': lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	'*': lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
	'~': lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	'.': lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
}

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarration lineKind = iota
	kindPosition
	kindDialogue
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[debug]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "You are at"):
		return kindPosition
	case strings.HasPrefix(line, "Something blocks"),
		strings.HasPrefix(line, "No path"),
		strings.HasPrefix(line, "I don't understand"),
		strings.HasPrefix(line, "Unknown action"),
		strings.HasPrefix(line, "Usage:"):
		return kindError
	case containsQuotedSpeech(line):
		return kindDialogue
	default:
		return kindNarration
	}
}

// containsQuotedSpeech checks if a line contains NPC dialogue in quotes.
func containsQuotedSpeech(line string) bool {
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		if r == '"' || r == '\'' {
			if inQuote && quoteLen > 5 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		} else if inQuote {
			quoteLen++
		}
	}
	return false
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindPosition:
		return stylePosition.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarration.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}

// styledMapRow colours one rendered map row glyph by glyph.
func styledMapRow(row string) string {
	var b strings.Builder
	for _, r := range row {
		if st, ok := glyphStyles[r]; ok {
			b.WriteString(st.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
