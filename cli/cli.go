// Package cli provides line-oriented terminal play, output formatting and
// meta-command dispatch for the tilecore engine.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/tilecore/engine"
	"github.com/nathoo/tilecore/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Debug     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, saveDir string) *CLI {
	return &CLI{
		Engine:  eng,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: saveDir,
	}
}

// Run starts the command loop: prompt, input, dispatch, output. It returns
// when input ends, /quit is entered or ctx is cancelled.
func (c *CLI) Run(ctx context.Context) {
	c.Engine.Events.SetDebug(c.Debug)
	c.printLine(c.Engine.Where())

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Command(ctx, input)
		c.printResult(result)

		if c.Debug {
			c.printTrace(result)
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(ctx, arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/debug":
		c.Debug = !c.Debug
		c.Engine.Events.SetDebug(c.Debug)
		if c.Debug {
			c.printSystem("Debug output enabled.")
		} else {
			c.printSystem("Debug output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) savePath(name string) string {
	if name == "" {
		name = "quicksave"
	}
	return filepath.Join(c.SaveDir, name+".json")
}

func (c *CLI) cmdSave(name string) {
	data, err := c.Engine.Save()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := c.savePath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Game saved to %s.", strings.TrimSuffix(filepath.Base(path), ".json")))
}

func (c *CLI) cmdLoad(ctx context.Context, name string) {
	path := c.savePath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	if err := c.Engine.Load(ctx, data); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (frame %d).",
		strings.TrimSuffix(filepath.Base(path), ".json"), c.Engine.Session.State.Frame))
	c.printLine(c.Engine.Where())
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]  — Save game (default: quicksave)",
		"  /load [name]  — Load game (default: quicksave)",
		"  /quit         — Exit game",
		"  /help         — Show this help",
		"  /state        — Debug: dump variables, actors and running events",
		"  /debug        — Toggle condition debug output",
		"",
		"Game commands:",
		"  walk <dir> [n] (n/s/e/w)  — Walk n tiles (or just type a direction)",
		"  go <x> <y>                — Walk to a tile along the shortest path",
		"  go <name>                 — Walk up to a character",
		"  face <dir|name>           — Turn without moving",
		"  interact (talk, use)      — Press the action button",
		"  wait [frames] (z)         — Let time pass",
		"  do <action>               — Run an action, e.g. do say Hello",
		"  where (look)              — Show your position",
		"  map                       — Draw the current map",
		"  vars                      — List game variables",
		"  events                    — List running events",
		"  again (g)                 — Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.Session
	c.printSystem(fmt.Sprintf("Frame: %d (%.1fs)", s.State.Frame, s.State.Time))
	c.printSystem(fmt.Sprintf("Location: %s", c.Engine.Where()))
	for _, a := range s.World.Actors() {
		c.printSystem(fmt.Sprintf("Actor %s at (%d, %d) facing %s", a.Slug, a.Tile().X, a.Tile().Y, a.Facing()))
	}
	if keys := s.State.Keys(); len(keys) > 0 {
		for _, k := range keys {
			v, _ := s.State.Get(k)
			c.printSystem(fmt.Sprintf("Var %s = %s", k, v))
		}
	}
	if running := c.Engine.Events.Running(); len(running) > 0 {
		c.printSystem(fmt.Sprintf("Running: %v", running))
	}
}

func (c *CLI) printTrace(result types.Result) {
	for _, id := range result.Started {
		c.printSystem(fmt.Sprintf("[debug] started %s", id))
	}
	for _, id := range result.Finished {
		c.printSystem(fmt.Sprintf("[debug] finished %s", id))
	}
	for _, p := range c.Engine.Events.PartialEvents() {
		var failed []string
		for _, r := range p.Results {
			if !r.Passed {
				failed = append(failed, r.Condition.Operator+" "+r.Condition.Type)
			}
		}
		if len(failed) > 0 {
			c.printSystem(fmt.Sprintf("[debug] %s waits on %s", p.Event.Name, strings.Join(failed, ", ")))
		}
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
