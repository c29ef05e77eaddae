package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/tilecore/engine"
	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the tilecore TUI. In map mode the
// arrow keys walk the player and the game runs in real time; in command
// mode typed commands are executed.
type Model struct {
	ctx    context.Context
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated log lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	typing   bool // command mode
	debug    bool
	quitting bool
	lastCmd  string
	saveDir  string
}

// tickMsg advances the game one frame.
type tickMsg struct{}

// gameOutputMsg carries output from the engine into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for frame output)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
}

var arrowDirections = map[string]types.Direction{
	"up": types.Up, "down": types.Down, "left": types.Left, "right": types.Right,
	"w": types.Up, "s": types.Down, "a": types.Left, "d": types.Right,
	"k": types.Up, "j": types.Down, "h": types.Left, "l": types.Right,
}

// New creates a TUI model wired to the given engine.
func New(ctx context.Context, eng *engine.Engine, saveDir string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt
	ti.Placeholder = "press : or / to type a command"

	if saveDir == "" {
		home, _ := os.UserHomeDir()
		saveDir = filepath.Join(home, ".tilecore", "saves")
	}
	return Model{
		ctx:     ctx,
		engine:  eng,
		input:   ti,
		history: NewHistory(100),
		saveDir: saveDir,
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, eng *engine.Engine, saveDir string) error {
	m := New(ctx, eng, saveDir)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the frame clock and shows where the player is.
func (m Model) Init() tea.Cmd {
	where := m.engine.Where()
	return tea.Batch(m.tick(), func() tea.Msg {
		return gameOutputMsg{lines: []string{where, "Arrows move, space talks, : types a command."}}
	})
}

func (m Model) tick() tea.Cmd {
	frame := time.Duration(m.engine.FrameTime() * float64(time.Second))
	return tea.Tick(frame, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update handles messages (frames, key presses, window resize, output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tickMsg:
		if m.typing {
			// The world pauses while a command is typed.
			return m, m.tick()
		}
		m = m.frame()
		return m, m.tick()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.typing {
			return m.updateTyping(msg)
		}
		return m.updateMap(msg)

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}
	return m, nil
}

// frame runs one game frame and collects its output.
func (m Model) frame() Model {
	result := m.engine.Update(m.ctx, m.engine.FrameTime())

	// Drop a keyboard step into a wall instead of pushing against it every
	// frame. Event-driven movement keeps its own retries.
	if p, ok := m.engine.Session.Player(); ok && !p.Moving() && len(p.Path()) > 0 &&
		len(m.engine.Events.Running()) == 0 {
		p.CancelMovement()
	}
	if lines := m.withTrace(result); len(lines) > 0 {
		m = m.appendOutput(gameOutputMsg{lines: lines})
	}
	return m
}

// updateMap handles keys in map mode.
func (m Model) updateMap(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if d, ok := arrowDirections[k]; ok {
		m.step(d)
		return m, nil
	}
	switch k {
	case " ", "enter", "z":
		result := m.engine.Interact(m.ctx)
		if lines := m.withTrace(result); len(lines) > 0 {
			m = m.appendOutput(gameOutputMsg{lines: lines})
		}
	case ":", "/", "tab":
		m.typing = true
		m.input.Focus()
		if k == "/" {
			m.input.SetValue("/")
			m.input.CursorEnd()
		}
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "pgup", "pgdown":
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, vpCmd
	}
	return m, nil
}

// step turns the player toward d and starts one tile of movement when it
// is idle.
func (m Model) step(d types.Direction) {
	p, ok := m.engine.Session.Player()
	if !ok || p.Moving() || len(p.Path()) > 0 {
		return
	}
	p.SetFacing(d)
	p.SetPath([]types.Tile{grid.Neighbor(p.Tile(), d)})
}

// updateTyping handles keys in command mode.
func (m Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.typing = false
		m.input.SetValue("")
		m.input.Blur()
		return m, nil

	case "enter":
		return m.handleEnter()

	case "up":
		if prev, ok := m.history.Prev(); ok {
			m.input.SetValue(prev)
			m.input.CursorEnd()
		}
		return m, nil

	case "down":
		if next, ok := m.history.Next(); ok {
			m.input.SetValue(next)
			m.input.CursorEnd()
		} else {
			m.input.SetValue("")
			m.history.ResetCursor()
		}
		return m, nil

	case "tab":
		if full, ok := m.history.Complete(m.input.Value()); ok {
			m.input.SetValue(full)
			m.input.CursorEnd()
		}
		return m, nil

	case "pgup", "pgdown":
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, vpCmd
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, inputCmd
}

// handleEnter processes the submitted input line and returns to map mode.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	m.input.Blur()
	m.typing = false

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	// Game command.
	result := m.engine.Command(m.ctx, input)
	m = m.appendOutput(gameOutputMsg{input: input, lines: m.withTrace(result)})
	return m, nil
}

// withTrace returns the result's output followed by debug lines when
// debugging.
func (m Model) withTrace(result types.Result) []string {
	if !m.debug {
		return result.Output
	}
	return append(append([]string(nil), result.Output...), m.formatTrace(result)...)
}

// appendOutput adds lines to the log and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	m.refreshViewport()

	return m
}

// mapHeight is the number of map rows shown: at most half the screen.
func (m *Model) mapHeight() int {
	h := m.height/2 - 2 // frame border
	if h < 3 {
		h = 3
	}
	return h
}

// layout sizes the log viewport to what the map pane leaves.
func (m *Model) layout() {
	vpHeight := m.height - m.mapHeight() - 2 - 2 // map border, status bar, input line
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.viewport.KeyMap = viewportKeyMap()
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}

	m.refreshViewport()
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// cropRows cuts a w x h window out of rows, centred on center and clamped
// to the map edges. The centre lands at offset (w/2, h/2), so an even-sized
// window shows one more cell before the centre than after it.
func cropRows(rows []string, center types.Tile, w, h int) []string {
	if len(rows) == 0 || w <= 0 || h <= 0 {
		return nil
	}
	mapW, mapH := len(rows[0]), len(rows)
	w, h = min(w, mapW), min(h, mapH)

	x0 := clamp(center.X-w/2, 0, mapW-w)
	y0 := clamp(center.Y-h/2, 0, mapH-h)

	out := make([]string, 0, h)
	for _, row := range rows[y0 : y0+h] {
		out = append(out, row[x0:x0+w])
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// renderMap draws the part of the map around the player.
func (m Model) renderMap() string {
	rows := m.engine.Render()
	if len(rows) == 0 {
		return styleMapFrame.Render("No map loaded.")
	}
	var center types.Tile
	if p, ok := m.engine.Session.Player(); ok {
		center = p.Tile()
	}
	visible := cropRows(rows, center, max(m.width-2, 1), m.mapHeight())
	for i, row := range visible {
		visible[i] = styledMapRow(row)
	}
	return styleMapFrame.Render(strings.Join(visible, "\n"))
}

// View renders the full TUI layout: map + log + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderMap(),
		m.viewport.View(),
		m.renderStatusBar(),
		m.input.View(),
	)
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/debug":
		m.debug = !m.debug
		m.engine.Events.SetDebug(m.debug)
		if m.debug {
			return []string{"Debug output enabled."}, false
		}
		return []string{"Debug output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) savePath(name string) (string, string) {
	if name == "" {
		name = "quicksave"
	}
	return name, filepath.Join(m.saveDir, name+".json")
}

func (m *Model) cmdSave(arg string) []string {
	name, path := m.savePath(arg)

	data, err := m.engine.Save()
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(arg string) []string {
	name, path := m.savePath(arg)

	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	if err := m.engine.Load(m.ctx, data); err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	return []string{
		fmt.Sprintf("Game loaded from %s (frame %d).", name, m.engine.Session.State.Frame),
		m.engine.Where(),
	}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"Map mode:",
		"  arrows / wasd / hjkl  — Walk one tile",
		"  space / enter / z     — Talk or interact",
		"  : or tab              — Type a command",
		"  q                     — Quit",
		"",
		"System:",
		"  /save [name]  — Save game (default: quicksave)",
		"  /load [name]  — Load game (default: quicksave)",
		"  /quit         — Exit game",
		"  /help         — Show this help",
		"  /state        — Debug: dump variables, actors and running events",
		"  /debug        — Toggle condition debug output",
		"",
		"Commands:",
		"  walk <dir> [n]  go <x> <y>|<name>  face <dir|name>  wait [frames]",
		"  interact  do <action>  where  map  vars  events",
		"  again (g)       — Repeat your last command",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history, Tab to complete",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.Session
	output := []string{
		fmt.Sprintf("Frame: %d (%.1fs)", s.State.Frame, s.State.Time),
		fmt.Sprintf("Location: %s", m.engine.Where()),
	}
	for _, a := range s.World.Actors() {
		output = append(output, fmt.Sprintf("Actor %s at (%d, %d) facing %s", a.Slug, a.Tile().X, a.Tile().Y, a.Facing()))
	}
	for _, k := range s.State.Keys() {
		v, _ := s.State.Get(k)
		output = append(output, fmt.Sprintf("Var %s = %s", k, v))
	}
	if running := m.engine.Events.Running(); len(running) > 0 {
		output = append(output, fmt.Sprintf("Running: %v", running))
	}
	return output
}

func (m *Model) formatTrace(result types.Result) []string {
	var lines []string
	for _, id := range result.Started {
		lines = append(lines, "[debug] started "+id)
	}
	for _, id := range result.Finished {
		lines = append(lines, "[debug] finished "+id)
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for movement and input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
