package world

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/types"
)

func tile(x, y int) types.Tile { return types.Tile{X: x, Y: y} }

func newWorld(t *testing.T, w, h int) *World {
	t.Helper()
	wd := New(Config{}, nil, nil)
	wd.ChangeMap(context.Background(), tilemap.New("test", w, h))
	return wd
}

func spawn(t *testing.T, w *World, slug string, at types.Tile) *Actor {
	t.Helper()
	a, err := w.Spawn(slug, at, types.Down)
	if err != nil {
		t.Fatalf("Spawn(%s): %v", slug, err)
	}
	return a
}

func run(w *World, frames int, dt float64) {
	for i := 0; i < frames; i++ {
		w.Update(dt)
	}
}

func TestSpawnClaimsTile(t *testing.T) {
	w := newWorld(t, 5, 5)
	spawn(t, w, "npc", tile(2, 3))

	if s, ok := w.Occupant(tile(2, 3)); !ok || s != "npc" {
		t.Errorf("Occupant = %q, %v, want npc, true", s, ok)
	}
	if _, err := w.Spawn("npc", tile(0, 0), types.Down); !errors.Is(err, ErrDuplicateActor) {
		t.Errorf("duplicate spawn err = %v, want ErrDuplicateActor", err)
	}
}

func TestPathfindWalk(t *testing.T) {
	w := newWorld(t, 5, 5)
	a := spawn(t, w, "npc", tile(0, 0))

	if !a.Pathfind(tile(2, 0)) {
		t.Fatal("expected a route")
	}
	if !a.Moving() {
		t.Fatal("expected first leg to start immediately")
	}
	if _, ok := w.Occupant(tile(0, 0)); ok {
		t.Error("origin should be released when a leg starts")
	}

	run(w, 20, 0.1)

	if a.Tile() != tile(2, 0) {
		t.Errorf("Tile = %v, want (2,0)", a.Tile())
	}
	if a.Position() != At(tile(2, 0)) {
		t.Errorf("Position = %v, want exact snap to (2,0)", a.Position())
	}
	if a.Moving() || a.Walking() {
		t.Error("expected actor stopped")
	}
	if _, ok := a.MoveDestination(); ok {
		t.Error("expected no destination")
	}
	if s, _ := w.Occupant(tile(2, 0)); s != "npc" {
		t.Errorf("Occupant(2,0) = %q, want npc", s)
	}
}

func TestSingleStepBlockedWaits(t *testing.T) {
	w := newWorld(t, 5, 5)
	a := spawn(t, w, "player", tile(0, 0))
	b := spawn(t, w, "rock", tile(1, 0))

	a.SetMoveDirection(types.Right)
	w.Update(0.1)

	if a.Moving() {
		t.Fatal("expected blocked actor to hold position")
	}
	if a.Facing() != types.Right {
		t.Errorf("Facing = %v, want right", a.Facing())
	}
	if dest, ok := a.MoveDestination(); !ok || dest != tile(1, 0) {
		t.Errorf("MoveDestination = %v, %v, want (1,0), true", dest, ok)
	}

	b.Teleport(tile(4, 4))
	w.Update(0.1)
	if !a.Moving() {
		t.Error("expected actor to start once the tile cleared")
	}
}

func TestCancelMovementAtOriginAborts(t *testing.T) {
	w := newWorld(t, 5, 5)
	a := spawn(t, w, "player", tile(1, 1))

	a.SetMoveDirection(types.Down)
	w.Update(0)
	if !a.Moving() {
		t.Fatal("expected leg to start")
	}

	a.CancelMovement()
	if a.Moving() {
		t.Error("expected actor stopped")
	}
	if a.Tile() != tile(1, 1) {
		t.Errorf("Tile = %v, want (1,1)", a.Tile())
	}
	if s, _ := w.Occupant(tile(1, 1)); s != "player" {
		t.Errorf("Occupant(1,1) = %q, want player", s)
	}
}

func TestCancelMovementMidLegFinishesTile(t *testing.T) {
	w := newWorld(t, 5, 5)
	a := spawn(t, w, "npc", tile(0, 0))
	a.Pathfind(tile(3, 0))
	w.Update(0.1)

	a.CancelMovement()
	if got := a.Path(); !reflect.DeepEqual(got, []types.Tile{tile(1, 0)}) {
		t.Errorf("Path = %v, want [(1,0)]", got)
	}

	run(w, 10, 0.1)
	if a.Tile() != tile(1, 0) {
		t.Errorf("Tile = %v, want (1,0)", a.Tile())
	}
	if _, ok := a.PathfindDestination(); ok {
		t.Error("expected pathfinding goal cleared")
	}
}

func TestSameTargetBlocked(t *testing.T) {
	w := newWorld(t, 5, 5)
	a := spawn(t, w, "a", tile(0, 0))
	b := spawn(t, w, "b", tile(2, 0))

	a.SetMoveDirection(types.Right)
	b.SetMoveDirection(types.Left)
	w.Update(0.01)

	if !a.Moving() {
		t.Error("first actor in list order should move")
	}
	if b.Moving() {
		t.Error("second actor should wait for the shared target")
	}
}

func TestBlockedPathfindReroutes(t *testing.T) {
	w := newWorld(t, 3, 2)
	a := spawn(t, w, "npc", tile(0, 0))

	a.Pathfind(tile(2, 1))
	want := []types.Tile{tile(0, 1), tile(1, 1), tile(2, 1)}
	if got := a.Path(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Path = %v, want %v", got, want)
	}

	spawn(t, w, "rock", tile(1, 1))
	run(w, 60, 0.1)

	if a.Tile() != tile(2, 1) {
		t.Errorf("Tile = %v, want (2,1)", a.Tile())
	}
	if a.Moving() {
		t.Error("expected actor stopped at destination")
	}
}

func TestPathfindFailure(t *testing.T) {
	w := newWorld(t, 3, 1)
	w.Map().Block(tile(1, 0))
	a := spawn(t, w, "npc", tile(0, 0))

	if a.Pathfind(tile(2, 0)) {
		t.Fatal("expected no route")
	}
	if _, err := w.Pathfind(tile(0, 0), tile(2, 0), types.Down); !errors.Is(err, tilemap.ErrNoPath) {
		t.Errorf("err = %v, want ErrNoPath", err)
	}

	w.Update(0.1)
	if _, ok := a.PathfindDestination(); ok {
		t.Error("unreachable goal should be dropped once stopped")
	}
}

func TestEndureContinues(t *testing.T) {
	w := newWorld(t, 5, 1)
	w.Map().SetRegion(tile(1, 0), &types.RegionProperties{Endure: []types.Direction{types.Right}})
	a := spawn(t, w, "npc", tile(0, 0))

	a.SetPath([]types.Tile{tile(1, 0)})
	run(w, 20, 0.1)

	if a.Tile() != tile(2, 0) {
		t.Errorf("Tile = %v, want (2,0)", a.Tile())
	}
}

func TestSurfaceSpeed(t *testing.T) {
	w := New(Config{SurfaceSpeeds: map[string]float64{"surfable": 0.5}}, nil, nil)
	m := tilemap.New("water", 3, 3)
	m.SetSurface(tile(0, 0), "surfable")
	w.ChangeMap(context.Background(), m)
	a := spawn(t, w, "npc", tile(0, 0))

	a.SetPath([]types.Tile{tile(1, 0)})
	if got, want := a.Velocity().X, DefaultWalkRate*0.5; got != want {
		t.Errorf("Velocity.X = %v, want %v", got, want)
	}
}

func TestIgnoreCollisions(t *testing.T) {
	w := newWorld(t, 3, 1)
	w.Map().Block(tile(1, 0))
	a := spawn(t, w, "ghost", tile(0, 0))
	a.IgnoreCollisions = true

	a.SetPath([]types.Tile{tile(1, 0)})
	if !a.Moving() {
		t.Error("expected actor to pass through a blocked tile")
	}
}

func TestChangeMap(t *testing.T) {
	w := newWorld(t, 5, 5)
	p := spawn(t, w, "player", tile(1, 1))
	p.Persistent = true
	spawn(t, w, "npc", tile(2, 2))

	var seen string
	w.OnMapChange(func(m *tilemap.Map) { seen = m.Name })

	gen := w.Generation()
	w.ChangeMap(context.Background(), tilemap.New("cave", 4, 4))

	if w.Generation() != gen+1 {
		t.Errorf("Generation = %d, want %d", w.Generation(), gen+1)
	}
	if seen != "cave" {
		t.Errorf("listener saw %q, want cave", seen)
	}
	if _, ok := w.Actor("npc"); ok {
		t.Error("non-persistent actor should be removed")
	}
	if s, _ := w.Occupant(tile(1, 1)); s != "player" {
		t.Errorf("Occupant(1,1) = %q, want player", s)
	}
	if _, ok := w.Occupant(tile(2, 2)); ok {
		t.Error("old occupancy should be cleared")
	}
}

func TestRemoveActor(t *testing.T) {
	w := newWorld(t, 5, 5)
	spawn(t, w, "npc", tile(3, 3))

	if !w.RemoveActor("npc") {
		t.Fatal("expected removal")
	}
	if w.RemoveActor("npc") {
		t.Error("second removal should report false")
	}
	if _, ok := w.Occupant(tile(3, 3)); ok {
		t.Error("expected claim released")
	}
	if len(w.Actors()) != 0 {
		t.Errorf("Actors = %d, want 0", len(w.Actors()))
	}
}

func TestSnapshotMarksOccupants(t *testing.T) {
	w := newWorld(t, 5, 5)
	spawn(t, w, "npc", tile(1, 2))

	g := w.Snapshot()
	if p := g[tile(1, 2)]; p == nil || p.Entity != "npc" {
		t.Errorf("snapshot(1,2) = %+v, want entity npc", p)
	}
	if _, ok := w.Map().Collision[tile(1, 2)]; ok {
		t.Error("snapshot must not write into the map")
	}
}

func TestSpawnOnOccupiedTile(t *testing.T) {
	w := newWorld(t, 5, 5)
	spawn(t, w, "a", tile(1, 1))

	if _, err := w.Spawn("b", tile(1, 1), types.Down); !errors.Is(err, ErrTileOccupied) {
		t.Fatalf("err = %v, want ErrTileOccupied", err)
	}
	if _, ok := w.Actor("b"); ok {
		t.Error("refused actor should not be registered")
	}
	if s, _ := w.Occupant(tile(1, 1)); s != "a" {
		t.Errorf("Occupant(1,1) = %q, want a", s)
	}
}

func TestClaimReturnsToActorLeftBehind(t *testing.T) {
	w := newWorld(t, 5, 5)
	spawn(t, w, "a", tile(1, 1))
	b := spawn(t, w, "b", tile(3, 3))

	// b lands on a's tile, then walks off.
	b.Teleport(tile(1, 1))
	if s, _ := w.Occupant(tile(1, 1)); s != "b" {
		t.Fatalf("Occupant(1,1) = %q, want b", s)
	}
	b.SetPath([]types.Tile{tile(2, 1)})
	if s, _ := w.Occupant(tile(1, 1)); s != "a" {
		t.Errorf("Occupant(1,1) = %q after b left, want a", s)
	}

	// Same when leaving by teleport.
	b.Teleport(tile(1, 1))
	b.Teleport(tile(4, 4))
	if s, _ := w.Occupant(tile(1, 1)); s != "a" {
		t.Errorf("Occupant(1,1) = %q after b teleported away, want a", s)
	}
}

func TestTileChangesOnArrival(t *testing.T) {
	tests := []struct {
		name   string
		target types.Tile
	}{
		{"left", tile(1, 2)},
		{"up", tile(2, 1)},
		{"right", tile(3, 2)},
		{"down", tile(2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld(t, 5, 5)
			a := spawn(t, w, "npc", tile(2, 2))

			a.SetPath([]types.Tile{tt.target})
			w.Update(0.1)
			if !a.Moving() {
				t.Fatal("expected leg in progress")
			}
			if a.Tile() != tile(2, 2) {
				t.Errorf("Tile mid-leg = %v, want origin (2,2)", a.Tile())
			}

			run(w, 10, 0.1)
			if a.Tile() != tt.target {
				t.Errorf("Tile = %v, want %v", a.Tile(), tt.target)
			}
		})
	}
}
