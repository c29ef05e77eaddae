package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/loader"
	"github.com/nathoo/tilecore/types"
)

// zone builds an event whose conditions share its trigger zone.
func zone(id, typ string, x, y, w, h int, conds []string, acts ...types.MapAction) types.EventObject {
	ev := types.EventObject{ID: id, Name: id, Type: typ, X: x, Y: y, W: w, H: h, Actions: acts}
	for _, c := range conds {
		fields := strings.Fields(c)
		mc := types.MapCondition{Operator: fields[0], Type: fields[1], X: x, Y: y, Width: w, Height: h}
		if len(fields) > 2 {
			mc.Parameters = strings.Split(fields[2], ",")
		}
		ev.Conditions = append(ev.Conditions, mc)
	}
	return ev
}

func act(typ string, params ...string) types.MapAction {
	return types.MapAction{Type: typ, Parameters: params}
}

// testMaps builds a small world: "town" is 8x6 with a wall, a sign, a
// counting tile and a door to "cave".
func testMaps() session.MapLoader {
	return session.MapLoaderFunc(func(name string) (*tilemap.Map, error) {
		switch name {
		case "town":
			m := tilemap.New("town", 8, 6)
			for y := 1; y < 6; y++ {
				m.Block(types.Tile{X: 5, Y: y})
			}
			m.SetSurface(types.Tile{X: 0, Y: 5}, "surfable")
			m.Inits = []types.EventObject{
				zone("init", "init", 0, 0, 0, 0, nil, act("set_variable", "visits:0")),
			}
			m.Events = []types.EventObject{
				zone("count", "event", 2, 0, 1, 1, []string{"is player_moved"}, act("variable_math", "visits", "+", "1")),
				zone("door", "event", 7, 5, 1, 1, []string{"is char_at player"}, act("teleport", "cave", "1", "1")),
				zone("greet", "event", 0, 0, 0, 0, []string{"is to_talk maple"},
					act("char_face", "maple", "player"), act("say", "Hello!")),
			}
			m.Interacts = []types.EventObject{
				zone("sign", "interact", 1, 2, 1, 1, []string{"is player_facing_tile"}, act("say", "A weathered sign.")),
			}
			return m, nil
		case "cave":
			return tilemap.New("cave", 4, 4), nil
		}
		return nil, fmt.Errorf("no map %q", name)
	})
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Options{Game: "test", Maps: testMaps(), Seed: 1})
	if err := e.Start(context.Background(), "town"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e
}

func (e *Engine) playerTile(t *testing.T) types.Tile {
	t.Helper()
	p, ok := e.Session.Player()
	if !ok {
		t.Fatal("no player")
	}
	return p.Tile()
}

func hasOutput(r types.Result, text string) bool {
	return slices.Contains(r.Output, text)
}

func TestStartSpawnsPlayer(t *testing.T) {
	e := newEngine(t)
	p, ok := e.Session.Player()
	if !ok {
		t.Fatal("player not spawned")
	}
	if !p.Persistent || p.Tile() != (types.Tile{}) || p.Facing() != types.Down {
		t.Errorf("player = %v facing %v persistent %v", p.Tile(), p.Facing(), p.Persistent)
	}
	if err := e.Start(context.Background(), "nowhere"); err == nil {
		t.Error("Start on a missing map should fail")
	}
}

func TestUpdateRunsInitsOnce(t *testing.T) {
	e := newEngine(t)
	r := e.Update(context.Background(), e.FrameTime())
	if !slices.Contains(r.Started, "init") || !slices.Contains(r.Finished, "init") {
		t.Errorf("result = %+v, want init started and finished", r)
	}
	e.Session.State.Set("visits", "5")
	e.Update(context.Background(), e.FrameTime())
	if v, _ := e.Session.State.Get("visits"); v != "5" {
		t.Errorf("init ran twice: visits = %s", v)
	}
}

func TestWalk(t *testing.T) {
	e := newEngine(t)
	r := e.Command(context.Background(), "walk right 3")
	if got := e.playerTile(t); got != (types.Tile{X: 3, Y: 0}) {
		t.Fatalf("player at %v, want (3,0)", got)
	}
	if !hasOutput(r, "You are at (3, 0).") {
		t.Errorf("output = %v", r.Output)
	}
}

func TestWalkBlocked(t *testing.T) {
	e := newEngine(t)
	e.Command(context.Background(), "go 4 1")
	r := e.Command(context.Background(), "e")
	if got := e.playerTile(t); got != (types.Tile{X: 4, Y: 1}) {
		t.Errorf("player at %v, want (4,1)", got)
	}
	if !hasOutput(r, "Something blocks the way.") {
		t.Errorf("output = %v", r.Output)
	}
}

func TestGotoAroundWall(t *testing.T) {
	e := newEngine(t)
	e.Command(context.Background(), "go 4 4")
	r := e.Command(context.Background(), "go to 6,4")
	if got := e.playerTile(t); got != (types.Tile{X: 6, Y: 4}) {
		t.Errorf("player at %v, want (6,4): %v", got, r.Output)
	}

	r = e.Command(context.Background(), "go 5 3")
	if !hasOutput(r, "No path to (5, 3).") {
		t.Errorf("output = %v", r.Output)
	}
}

func TestGotoActor(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Session.World.Spawn("professor_maple", types.Tile{X: 3, Y: 3}, types.Up); err != nil {
		t.Fatal(err)
	}
	p, _ := e.Session.Player()

	e.Command(context.Background(), "face maple")
	if p.Facing() != types.Down {
		t.Errorf("facing %v, want down", p.Facing())
	}

	r := e.Command(context.Background(), "go maple")
	if got := e.playerTile(t); got != (types.Tile{X: 3, Y: 2}) {
		t.Fatalf("player at %v, want (3,2): %v", got, r.Output)
	}
	if p.Facing() != types.Down {
		t.Errorf("facing %v after approach, want down", p.Facing())
	}

	r = e.Command(context.Background(), "go nurse")
	if !hasOutput(r, `You don't see "nurse" here`) {
		t.Errorf("output = %v", r.Output)
	}
}

func TestPlayerMovedCountsPasses(t *testing.T) {
	e := newEngine(t)
	e.Command(context.Background(), "walk right 3")
	e.Command(context.Background(), "walk left 3")
	if v, _ := e.Session.State.Get("visits"); v != "2" {
		t.Errorf("visits = %q, want 2", v)
	}
}

func TestInteractSign(t *testing.T) {
	e := newEngine(t)
	e.Command(context.Background(), "go 0 2")
	e.Command(context.Background(), "face right")

	r := e.Command(context.Background(), "interact")
	if !hasOutput(r, "A weathered sign.") {
		t.Errorf("output = %v", r.Output)
	}

	e.Command(context.Background(), "face left")
	r = e.Command(context.Background(), "interact")
	if hasOutput(r, "A weathered sign.") {
		t.Error("sign read while facing away")
	}
}

func TestTalkToNPC(t *testing.T) {
	e := newEngine(t)
	maple, err := e.Session.World.Spawn("maple", types.Tile{X: 0, Y: 1}, types.Left)
	if err != nil {
		t.Fatal(err)
	}

	r := e.Command(context.Background(), "wait 5")
	if hasOutput(r, "Hello!") {
		t.Fatal("greeting without pressing the button")
	}

	r = e.Command(context.Background(), "talk")
	if !hasOutput(r, "Hello!") {
		t.Errorf("output = %v", r.Output)
	}
	if maple.Facing() != types.Up {
		t.Errorf("maple faces %v, want up", maple.Facing())
	}
}

func TestDoorChangesMap(t *testing.T) {
	e := newEngine(t)
	e.Session.World.Spawn("maple", types.Tile{X: 1, Y: 0}, types.Down)

	e.Command(context.Background(), "go 7 5")
	if got := e.Session.Map().Name; got != "cave" {
		t.Fatalf("map = %s, want cave", got)
	}
	if got := e.playerTile(t); got != (types.Tile{X: 1, Y: 1}) {
		t.Errorf("player at %v, want (1,1)", got)
	}
	if _, ok := e.Session.World.Actor("maple"); ok {
		t.Error("npc should not follow the player to another map")
	}
}

func TestDo(t *testing.T) {
	e := newEngine(t)

	r := e.Command(context.Background(), "do say Hi\\, there")
	if !hasOutput(r, "Hi, there") {
		t.Errorf("output = %v", r.Output)
	}

	e.Command(context.Background(), "do set_variable coins:3")
	r = e.Command(context.Background(), "vars")
	if !hasOutput(r, "coins = 3") {
		t.Errorf("vars = %v", r.Output)
	}

	r = e.Command(context.Background(), "do dance")
	if !hasOutput(r, `Unknown action "dance".`) {
		t.Errorf("output = %v", r.Output)
	}

	e.Command(context.Background(), "do char_move player,down 2")
	if got := e.playerTile(t); got != (types.Tile{X: 0, Y: 2}) {
		t.Errorf("player at %v, want (0,2)", got)
	}
}

func TestQueries(t *testing.T) {
	e := newEngine(t)
	e.Session.World.Spawn("maple", types.Tile{X: 2, Y: 1}, types.Down)

	if got := e.Where(); got != "town (0, 0), facing down" {
		t.Errorf("Where = %q", got)
	}
	rows := e.Command(context.Background(), "map").Output
	if len(rows) != 6 {
		t.Fatalf("map rows = %d, want 6", len(rows))
	}
	for i, want := range map[int]string{0: "@.*.....", 1: "..o..#..", 2: ".*...#..", 5: "~....#.*"} {
		if rows[i] != want {
			t.Errorf("row %d = %q, want %q", i, rows[i], want)
		}
	}

	if r := e.Command(context.Background(), "xyzzy"); !hasOutput(r, `I don't understand "xyzzy".`) {
		t.Errorf("output = %v", r.Output)
	}
	if r := e.Command(context.Background(), ""); !hasOutput(r, "What do you want to do?") {
		t.Errorf("output = %v", r.Output)
	}
}

func TestSaveLoad(t *testing.T) {
	e := newEngine(t)
	e.Command(context.Background(), "walk right 2")
	e.Command(context.Background(), "do set_variable key:found")

	data, err := e.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	e2 := New(Options{Game: "test", Maps: testMaps(), Seed: 99})
	if err := e2.Start(context.Background(), "town"); err != nil {
		t.Fatal(err)
	}
	if err := e2.Load(context.Background(), data); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := e2.playerTile(t); got != (types.Tile{X: 2, Y: 0}) {
		t.Errorf("player at %v, want (2,0)", got)
	}
	if v, _ := e2.Session.State.Get("key"); v != "found" {
		t.Errorf("key = %q", v)
	}
	if e2.Session.RNG.Seed() != 1 {
		t.Errorf("seed = %d, want 1", e2.Session.RNG.Seed())
	}

	if err := e2.Load(context.Background(), []byte("nope")); err == nil {
		t.Error("Load of garbage should fail")
	}
}

func TestLoadedEventsRunOncePerActivation(t *testing.T) {
	e := New(Options{
		Game:   "test",
		Maps:   loader.Dir{Root: "testdata"},
		Player: PlayerStart{X: 1, Y: 1},
		Seed:   1,
	})
	ctx := context.Background()
	if err := e.Start(ctx, "square"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	get := func(key string) string {
		v, _ := e.Session.State.Get(key)
		return v
	}

	e.Update(ctx, e.FrameTime())
	if get("flag") != "yes" {
		t.Fatalf("flag = %q after one update, want yes", get("flag"))
	}
	for i := 0; i < 50; i++ {
		e.Update(ctx, e.FrameTime())
	}
	if get("runs") != "1" {
		t.Errorf("always event ran %s times, want 1", get("runs"))
	}
	if get("steps") != "1" {
		t.Errorf("plate event ran %s times while the player stood on it, want 1", get("steps"))
	}
	if p, _ := e.Session.Player(); p.Tile() != (types.Tile{X: 1, Y: 1}) {
		t.Errorf("player moved to %v", p.Tile())
	}
}
