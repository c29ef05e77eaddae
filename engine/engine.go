// Package engine provides the frame orchestrator that wires together the
// world, the event engine, scheduled tasks and player commands.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/actions"
	"github.com/nathoo/tilecore/engine/conditions"
	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/engine/parser"
	"github.com/nathoo/tilecore/engine/resolve"
	"github.com/nathoo/tilecore/engine/save"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/state"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/observe"
	"github.com/nathoo/tilecore/types"
)

// DefaultFPS is the simulation rate used by commands that advance time.
const DefaultFPS = 30

// maxCommandFrames bounds how long a single command may simulate.
const maxCommandFrames = 60 * DefaultFPS

// PlayerStart places the player when a game starts.
type PlayerStart struct {
	Slug   string
	X, Y   int
	Facing types.Direction
}

// Options configures New.
type Options struct {
	Game    string
	World   world.Config
	Maps    session.MapLoader
	Catalog *events.Catalog // nil registers the built-in verbs
	Player  PlayerStart
	Seed    int64
	FPS     int
	Debug   bool
	Log     *zap.Logger
	Metrics *observe.Metrics
}

// Engine holds the session and the event engine driving it.
type Engine struct {
	Session *session.Session
	Events  *events.Engine

	game   string
	player PlayerStart
	dt     float64
	log    *zap.Logger
}

// New creates an engine. No map is loaded until Start.
func New(opts Options) *Engine {
	log := observe.OrNop(opts.Log)
	metrics := observe.OrDefault(opts.Metrics)

	catalog := opts.Catalog
	if catalog == nil {
		catalog = BuiltinCatalog()
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	player := opts.Player
	if player.Slug == "" {
		player.Slug = session.PlayerAlias
	}
	if player.Facing == "" {
		player.Facing = types.Down
	}

	w := world.New(opts.World, log, metrics)
	s := session.New(w, state.New(), state.NewRNG(opts.Seed), log, metrics)
	s.Maps = opts.Maps
	s.PlayerSlug = player.Slug

	ev := events.New(s, catalog, log, metrics)
	ev.SetDebug(opts.Debug)

	return &Engine{
		Session: s,
		Events:  ev,
		game:    opts.Game,
		player:  player,
		dt:      1 / float64(fps),
		log:     log,
	}
}

// BuiltinCatalog returns a catalog holding every built-in condition and
// action.
func BuiltinCatalog() *events.Catalog {
	c := events.NewCatalog()
	conditions.Register(c)
	actions.Register(c)
	return c
}

// FrameTime returns the fixed step used by commands, in seconds.
func (e *Engine) FrameTime() float64 { return e.dt }

// Start loads mapName and spawns the player on its start tile.
func (e *Engine) Start(ctx context.Context, mapName string) error {
	if err := e.Session.ChangeMap(ctx, mapName); err != nil {
		return err
	}
	if _, ok := e.Session.Player(); ok {
		return nil
	}
	p, err := e.Session.World.Spawn(e.player.Slug, types.Tile{X: e.player.X, Y: e.player.Y}, e.player.Facing)
	if err != nil {
		return fmt.Errorf("spawning player: %w", err)
	}
	p.Persistent = true
	return nil
}

// Update advances the game by dt seconds.
func (e *Engine) Update(ctx context.Context, dt float64) types.Result {
	// 1. Advance game time.
	e.Session.State.Advance(dt)

	// 2. Run due scheduled tasks.
	e.Session.RunTasks(dt)

	// 3. Start and step events.
	e.Events.Update(ctx)

	// 4. Move actors.
	e.Session.World.Update(dt)

	return e.collect()
}

// Interact presses the action button: interact events are evaluated, then
// standing events are checked once more while the button is held.
func (e *Engine) Interact(ctx context.Context) types.Result {
	e.Events.ProcessInteracts(ctx)

	e.Session.Interacting = true
	e.Events.Update(ctx)
	e.Session.Interacting = false

	return e.collect()
}

func (e *Engine) collect() types.Result {
	var r types.Result
	r.Output = e.Session.Drain()
	r.Started, r.Finished = e.Events.TakeActivity()
	return r
}

// merge appends the contents of b to a.
func merge(a *types.Result, b types.Result) {
	a.Output = append(a.Output, b.Output...)
	a.Started = append(a.Started, b.Started...)
	a.Finished = append(a.Finished, b.Finished...)
}

// runUntil steps frames until done reports true or the frame budget runs
// out.
func (e *Engine) runUntil(ctx context.Context, result *types.Result, done func() bool) bool {
	for i := 0; i < maxCommandFrames; i++ {
		if ctx.Err() != nil {
			return false
		}
		merge(result, e.Update(ctx, e.dt))
		if done() {
			return true
		}
	}
	return false
}

// Command parses and executes one typed player command, simulating frames
// until its effect settles.
func (e *Engine) Command(ctx context.Context, input string) types.Result {
	var result types.Result
	say := func(format string, args ...any) {
		result.Output = append(result.Output, fmt.Sprintf(format, args...))
	}

	// 1. Parse input.
	intent := parser.Parse(input)

	// 2. Empty input.
	if intent.Verb == "" {
		say("What do you want to do?")
		return result
	}

	// 3. Commands that need no map.
	switch intent.Verb {
	case "vars":
		keys := e.Session.State.Keys()
		if len(keys) == 0 {
			say("No variables set.")
		}
		for _, k := range keys {
			v, _ := e.Session.State.Get(k)
			say("%s = %s", k, v)
		}
		return result
	case "events":
		running := e.Events.Running()
		if len(running) == 0 {
			say("No events running.")
			return result
		}
		say("Running: %s", strings.Join(running, ", "))
		return result
	}

	m := e.Session.Map()
	p, ok := e.Session.Player()
	if m == nil || !ok {
		say("No map loaded.")
		return result
	}

	// 4. Dispatch.
	switch intent.Verb {
	case "walk":
		e.walk(ctx, p, intent.Args, &result)

	case "goto":
		if len(intent.Args) == 0 {
			say("Usage: go <x> <y> | go <name>")
			return result
		}
		if dest, ok := coords(intent.Args); ok {
			if !p.Pathfind(dest) {
				p.CancelPath()
				say("No path to (%d, %d).", dest.X, dest.Y)
				return result
			}
			e.settle(ctx, p, &result)
			break
		}
		target, err := resolve.Actor(e.Session.World, strings.Join(intent.Args, " "), p.Slug)
		if err != nil {
			say("%s", capitalize(err.Error()))
			return result
		}
		if !e.approach(p, target.Tile()) {
			say("No path to %s.", target.Slug)
			return result
		}
		e.settle(ctx, p, &result)
		if d := grid.DirectionTo(p.Tile(), target.Tile()); grid.Neighbor(p.Tile(), d) == target.Tile() {
			p.SetFacing(d)
		}

	case "face":
		if len(intent.Args) == 0 {
			say("Face which way?")
			return result
		}
		d, err := grid.ParseDirection(intent.Args[0])
		if err != nil {
			target, rerr := resolve.Actor(e.Session.World, strings.Join(intent.Args, " "), p.Slug)
			if rerr != nil {
				say("Unknown direction %q.", intent.Args[0])
				return result
			}
			d = grid.DirectionTo(p.Tile(), target.Tile())
		}
		p.SetFacing(d)

	case "wait":
		frames := DefaultFPS
		if len(intent.Args) > 0 {
			n, err := strconv.Atoi(intent.Args[0])
			if err != nil || n < 0 {
				say("Wait how many frames?")
				return result
			}
			frames = n
		}
		for i := 0; i < frames && ctx.Err() == nil; i++ {
			merge(&result, e.Update(ctx, e.dt))
		}

	case "interact":
		merge(&result, e.Interact(ctx))
		e.runUntil(ctx, &result, func() bool { return len(e.Events.Running()) == 0 && idle(p) })

	case "do":
		if len(intent.Args) == 0 {
			say("Do what?")
			return result
		}
		typ := intent.Args[0]
		if !e.Events.Catalog().HasAction(typ) {
			say("Unknown action %q.", typ)
			return result
		}
		id := e.Events.RunActions(ctx, []types.MapAction{{Type: typ, Parameters: intent.Args[1:]}})
		e.runUntil(ctx, &result, func() bool { return !e.Events.IsRunning(id) })

	case "where":
		say(e.Where())
		return result

	case "map":
		result.Output = append(result.Output, e.Render()...)
		return result

	default:
		say("I don't understand %q.", input)
		return result
	}

	// 5. Report where the player ended up after moving commands.
	if intent.Verb == "walk" || intent.Verb == "goto" {
		if p, ok := e.Session.Player(); ok {
			t := p.Tile()
			say("You are at (%d, %d).", t.X, t.Y)
		}
	}
	return result
}

func (e *Engine) walk(ctx context.Context, p *world.Actor, args []string, result *types.Result) {
	if len(args) == 0 {
		result.Output = append(result.Output, "Walk which way?")
		return
	}
	d, err := grid.ParseDirection(args[0])
	if err != nil {
		result.Output = append(result.Output, fmt.Sprintf("Unknown direction %q.", args[0]))
		return
	}
	n := 1
	if len(args) > 1 {
		if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
			result.Output = append(result.Output, "Walk how many tiles?")
			return
		}
	}

	p.SetFacing(d)
	path := make([]types.Tile, 0, n)
	cur := p.Tile()
	for i := 0; i < n; i++ {
		cur = grid.Neighbor(cur, d)
		path = append(path, cur)
	}
	p.SetPath(path)
	e.settle(ctx, p, result)
}

// settle simulates until p stops, then until the events it triggered have
// finished. A path left over means p was blocked; it is dropped so the
// player does not keep pushing against the obstacle.
func (e *Engine) settle(ctx context.Context, p *world.Actor, result *types.Result) {
	e.runUntil(ctx, result, func() bool { return !p.Moving() })
	if len(p.Path()) > 0 {
		p.CancelMovement()
		result.Output = append(result.Output, "Something blocks the way.")
	}
	e.runUntil(ctx, result, func() bool { return len(e.Events.Running()) == 0 })
}

// idle reports whether a has nowhere left to go.
func idle(a *world.Actor) bool {
	return !a.Moving() && len(a.Path()) == 0
}

// coords parses "x y" into a tile.
func coords(args []string) (types.Tile, bool) {
	if len(args) != 2 {
		return types.Tile{}, false
	}
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		return types.Tile{}, false
	}
	return types.Tile{X: x, Y: y}, true
}

// approach starts p walking to the nearest reachable tile beside target.
func (e *Engine) approach(p *world.Actor, target types.Tile) bool {
	for _, t := range resolve.Approach(p.Tile(), target) {
		if t == p.Tile() {
			return true
		}
		if p.Pathfind(t) {
			return true
		}
		p.CancelPath()
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Where describes the player's position.
func (e *Engine) Where() string {
	m := e.Session.Map()
	p, ok := e.Session.Player()
	if m == nil || !ok {
		return "No map loaded."
	}
	t := p.Tile()
	return fmt.Sprintf("%s (%d, %d), facing %s", m.Name, t.X, t.Y, p.Facing())
}

// Render draws the current map as text: '#' blocked, '~' surface, '@' the
// player, 'o' other characters, '*' event zones, '.' open ground.
func (e *Engine) Render() []string {
	m := e.Session.Map()
	if m == nil {
		return nil
	}
	zones := make(map[types.Tile]bool)
	for _, ev := range m.AllEvents() {
		for x := ev.X; x < ev.X+max(ev.W, 1); x++ {
			for y := ev.Y; y < ev.Y+max(ev.H, 1); y++ {
				zones[types.Tile{X: x, Y: y}] = true
			}
		}
	}
	occupants := e.Session.World.Occupants()

	lines := make([]string, 0, m.Height)
	var b strings.Builder
	for y := 0; y < m.Height; y++ {
		b.Reset()
		for x := 0; x < m.Width; x++ {
			t := types.Tile{X: x, Y: y}
			props, blocked := m.Collision[t]
			switch slug, occupied := occupants[t]; {
			case occupied && slug == e.Session.PlayerSlug:
				b.WriteByte('@')
			case occupied:
				b.WriteByte('o')
			case blocked && props == nil:
				b.WriteByte('#')
			case zones[t]:
				b.WriteByte('*')
			case m.Surface[t] != "":
				b.WriteByte('~')
			default:
				b.WriteByte('.')
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}

// Save serializes the session.
func (e *Engine) Save() ([]byte, error) {
	return save.Save(e.Session, e.game)
}

// Load restores a session saved with Save.
func (e *Engine) Load(ctx context.Context, data []byte) error {
	sd, err := save.Load(data)
	if err != nil {
		return fmt.Errorf("loading save: %w", err)
	}
	if err := save.Apply(ctx, e.Session, sd); err != nil {
		return err
	}
	e.log.Info("save restored", zap.String("map", sd.Map), zap.Int("actors", len(sd.Actors)))
	return nil
}
