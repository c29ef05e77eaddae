package plugin

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/state"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	w := world.New(world.Config{}, nil, nil)
	s := session.New(w, state.New(), state.NewRNG(3), nil, nil)
	s.Maps = session.MapLoaderFunc(func(name string) (*tilemap.Map, error) {
		return tilemap.New(name, 8, 8), nil
	})
	if err := s.ChangeMap(context.Background(), "town"); err != nil {
		t.Fatal(err)
	}
	return s
}

func newHost(t *testing.T, src string) (*Host, *events.Catalog) {
	t.Helper()
	c := events.NewCatalog()
	h := New(c, nil)
	t.Cleanup(h.Close)
	if err := h.LoadString("test.lua", src); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	return h, c
}

func TestConditionPlugin(t *testing.T) {
	_, c := newHost(t, `
Condition("has_coins", function(params, zone)
  return tonumber(get_var("coins") or "0") >= tonumber(params[1])
end)
Condition("zone_is_wide", function(params, zone)
  return zone.width > 1
end)
`)
	s := newSession(t)

	cond, ok := c.Condition("has_coins")
	if !ok {
		t.Fatal("has_coins not registered")
	}
	mc := types.MapCondition{Type: "has_coins", Parameters: []string{"5"}, Operator: "is"}
	if cond.Test(s, mc) {
		t.Error("has_coins with no coins = true, want false")
	}
	s.State.Set("coins", "7")
	if !cond.Test(s, mc) {
		t.Error("has_coins with 7 coins = false, want true")
	}

	wide, _ := c.Condition("zone_is_wide")
	if !wide.Test(s, types.MapCondition{Width: 3, Height: 1}) {
		t.Error("zone_is_wide(3x1) = false, want true")
	}
}

func TestConditionErrorIsFalse(t *testing.T) {
	_, c := newHost(t, `
Condition("broken", function(params, zone)
  error("boom")
end)
`)
	cond, _ := c.Condition("broken")
	if cond.Test(newSession(t), types.MapCondition{}) {
		t.Error("failing condition = true, want false")
	}
}

func TestActionPlugin(t *testing.T) {
	h, c := newHost(t, `
Action("greet", function(params, st)
  say("Hi " .. params[1])
  set_var("greeted", params[1])
end)
Action("count_down", function(params, st)
  st.n = (st.n or tonumber(params[1])) - 1
  set_var("left", st.n)
  return st.n <= 0
end)
`)
	s := newSession(t)
	e := events.New(s, c, nil, nil)

	if got := h.Verbs(); !slices.Equal(got, []string{"count_down", "greet"}) {
		t.Errorf("Verbs = %v, want [count_down greet]", got)
	}

	if err := e.ExecuteAction(context.Background(), "greet", []string{"maple"}); err != nil {
		t.Fatal(err)
	}
	if out := s.Drain(); !slices.Equal(out, []string{"Hi maple"}) {
		t.Errorf("output = %v", out)
	}
	if v, _ := s.State.Get("greeted"); v != "maple" {
		t.Errorf("greeted = %q, want maple", v)
	}

	act, err := c.NewAction(types.MapAction{Type: "count_down", Parameters: []string{"3"}})
	if err != nil {
		t.Fatal(err)
	}
	act.Start(s)
	frames := 1
	for !act.Done() {
		act.Update(s)
		frames++
	}
	if frames != 3 {
		t.Errorf("count_down 3 took %d frames, want 3", frames)
	}
	if v, _ := s.State.Get("left"); v != "0" {
		t.Errorf("left = %q, want 0", v)
	}
}

func TestActorTileAndRandom(t *testing.T) {
	_, c := newHost(t, `
Condition("maple_at", function(params, zone)
  local x, y = actor_tile("maple")
  if x == nil then return false end
  return x == tonumber(params[1]) and y == tonumber(params[2])
end)
Action("roll", function(params, st)
  set_var("roll", random(6))
end)
`)
	s := newSession(t)
	cond, _ := c.Condition("maple_at")
	mc := types.MapCondition{Parameters: []string{"2", "3"}}
	if cond.Test(s, mc) {
		t.Error("maple_at with no maple = true")
	}
	if _, err := s.World.Spawn("maple", types.Tile{X: 2, Y: 3}, types.Down); err != nil {
		t.Fatal(err)
	}
	if !cond.Test(s, mc) {
		t.Error("maple_at(2,3) = false, want true")
	}

	e := events.New(s, c, nil, nil)
	if err := e.ExecuteAction(context.Background(), "roll", nil); err != nil {
		t.Fatal(err)
	}
	if pos := s.RNG.Position(); pos != 1 {
		t.Errorf("RNG position = %d, want 1", pos)
	}
}

func TestSandbox(t *testing.T) {
	h := New(events.NewCatalog(), nil)
	defer h.Close()

	blocked := []string{
		`dofile("x.lua")`,
		`loadstring("return 1")()`,
		`math.randomseed(1)`,
		`math.random(3)`,
		`rawset({}, "a", 1)`,
		`os.exit(1)`,
		`io.open("/etc/passwd")`,
	}
	for _, src := range blocked {
		if err := h.LoadString("sandbox", src); err == nil {
			t.Errorf("%s succeeded in the sandbox", src)
		}
	}

	if err := h.LoadString("safe", `local t = {} table.insert(t, string.upper("a")) x = math.floor(1.5)`); err != nil {
		t.Errorf("safe libraries unavailable: %v", err)
	}
}

func TestAPIOutsideVerbCall(t *testing.T) {
	h := New(events.NewCatalog(), nil)
	defer h.Close()
	if err := h.LoadString("init", `get_var("x")`); err == nil {
		t.Error("get_var at load time should fail")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.lua", `Condition("always", function() return true end)`)
	write("b.lua", `Action("noop", function() end)`)
	write("notes.txt", `not lua`)

	c := events.NewCatalog()
	h, err := Load([]string{dir}, c, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer h.Close()
	if _, ok := c.Condition("always"); !ok {
		t.Error("always not registered")
	}
	if !c.HasAction("noop") {
		t.Error("noop not registered")
	}

	write("bad.lua", `this is not lua`)
	if _, err := Load([]string{filepath.Join(dir, "bad.lua")}, events.NewCatalog(), nil); err == nil {
		t.Error("Load of a broken file should fail")
	}
	if _, err := Load([]string{filepath.Join(dir, "missing.lua")}, events.NewCatalog(), nil); err == nil {
		t.Error("Load of a missing file should fail")
	}
}
