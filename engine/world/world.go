// Package world owns the actors on the current map and the tile occupancy
// index they share. Actors read the index to decide whether a step is legal
// and write it when their position is set; writes are visible immediately.
package world

import (
	"context"
	"errors"
	"fmt"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/observe"
	"github.com/nathoo/tilecore/types"
)

// Default movement rates in tiles per second.
const (
	DefaultWalkRate = 3.75
	DefaultRunRate  = 7.35
)

var (
	// ErrDuplicateActor is returned when adding an actor whose slug is taken.
	ErrDuplicateActor = errors.New("duplicate actor")
	// ErrTileOccupied is returned when adding an actor onto another actor.
	ErrTileOccupied = errors.New("tile occupied")
	// ErrNoMap is returned by operations that need a current map.
	ErrNoMap = errors.New("no map loaded")
)

// Config holds movement tuning.
type Config struct {
	WalkRate      float64
	RunRate       float64
	SurfaceSpeeds map[string]float64 // surface key -> speed multiplier
}

// World is the set of actors on the current map.
type World struct {
	cfg     Config
	log     *zap.Logger
	metrics *observe.Metrics

	current    *tilemap.Map
	generation int

	actors    []*Actor
	bySlug    map[string]*Actor
	occupants map[types.Tile]string

	listeners []func(*tilemap.Map)
}

// New creates an empty world. Zero rates take the defaults.
func New(cfg Config, log *zap.Logger, metrics *observe.Metrics) *World {
	if cfg.WalkRate <= 0 {
		cfg.WalkRate = DefaultWalkRate
	}
	if cfg.RunRate <= 0 {
		cfg.RunRate = DefaultRunRate
	}
	return &World{
		cfg:       cfg,
		log:       observe.OrNop(log),
		metrics:   observe.OrDefault(metrics),
		bySlug:    make(map[string]*Actor),
		occupants: make(map[types.Tile]string),
	}
}

// Config returns the movement configuration.
func (w *World) Config() Config { return w.cfg }

// Map returns the current map, or nil before the first ChangeMap.
func (w *World) Map() *tilemap.Map { return w.current }

// Generation increments on every map change. Callers holding iteration
// state compare generations to detect that the map was swapped under them.
func (w *World) Generation() int { return w.generation }

// OnMapChange registers fn to run after every map change.
func (w *World) OnMapChange(fn func(*tilemap.Map)) {
	w.listeners = append(w.listeners, fn)
}

// ChangeMap makes m current. Non-persistent actors are removed; persistent
// actors stop and keep their tile coordinates on the new map.
func (w *World) ChangeMap(ctx context.Context, m *tilemap.Map) {
	kept := w.actors[:0]
	for _, a := range w.actors {
		if a.Persistent {
			kept = append(kept, a)
			continue
		}
		delete(w.bySlug, a.Slug)
		a.world = nil
		w.metrics.ActiveActors.Add(ctx, -1)
	}
	for i := len(kept); i < len(w.actors); i++ {
		w.actors[i] = nil
	}
	w.actors = kept

	clear(w.occupants)
	w.current = m
	w.generation++

	for _, a := range w.actors {
		a.moveDirection = ""
		a.StopMoving()
		a.CancelPath()
		a.setPosition(a.tile)
	}

	if m != nil {
		w.log.Info("map changed",
			zap.String("map", m.Name),
			zap.Int("generation", w.generation),
			zap.Int("actors", len(w.actors)))
		w.metrics.RecordMapLoaded(ctx, m.Name)
	}
	for _, fn := range w.listeners {
		fn(m)
	}
}

// AddActor places a on t and registers it.
func (w *World) AddActor(a *Actor, t types.Tile) error {
	if _, ok := w.bySlug[a.Slug]; ok {
		return fmt.Errorf("adding %q: %w", a.Slug, ErrDuplicateActor)
	}
	if slug, ok := w.occupants[t]; ok {
		return fmt.Errorf("adding %q at (%d, %d) held by %q: %w", a.Slug, t.X, t.Y, slug, ErrTileOccupied)
	}
	if a.MoveRate <= 0 {
		a.MoveRate = w.cfg.WalkRate
	}
	a.world = w
	w.actors = append(w.actors, a)
	w.bySlug[a.Slug] = a
	a.setPosition(t)
	w.metrics.ActiveActors.Add(context.Background(), 1)
	return nil
}

// Spawn creates an actor facing facing on t.
func (w *World) Spawn(slug string, t types.Tile, facing types.Direction) (*Actor, error) {
	a := NewActor(slug)
	a.SetFacing(facing)
	if err := w.AddActor(a, t); err != nil {
		return nil, err
	}
	return a, nil
}

// RemoveActor drops the actor and its occupancy claims. It reports whether
// the actor existed.
func (w *World) RemoveActor(slug string) bool {
	a, ok := w.bySlug[slug]
	if !ok {
		return false
	}
	for t, s := range w.occupants {
		if s == slug {
			delete(w.occupants, t)
		}
	}
	for i, other := range w.actors {
		if other == a {
			w.actors = append(w.actors[:i], w.actors[i+1:]...)
			break
		}
	}
	delete(w.bySlug, slug)
	a.world = nil
	w.metrics.ActiveActors.Add(context.Background(), -1)
	return true
}

// Actor looks an actor up by slug.
func (w *World) Actor(slug string) (*Actor, bool) {
	a, ok := w.bySlug[slug]
	return a, ok
}

// Actors returns the actors in update order.
func (w *World) Actors() []*Actor {
	out := make([]*Actor, len(w.actors))
	copy(out, w.actors)
	return out
}

// Occupant returns the slug of the actor claiming t.
func (w *World) Occupant(t types.Tile) (string, bool) {
	s, ok := w.occupants[t]
	return s, ok
}

// Occupants returns a copy of the occupancy index.
func (w *World) Occupants() map[types.Tile]string {
	out := make(map[types.Tile]string, len(w.occupants))
	for t, s := range w.occupants {
		out[t] = s
	}
	return out
}

// Snapshot returns the collision map merged with the occupancy index.
func (w *World) Snapshot() tilemap.Grid {
	if w.current == nil {
		return tilemap.Grid{}
	}
	return w.current.Snapshot(w.occupants)
}

// Pathfind searches the current map from start to dest using a snapshot
// taken now. Failures are logged with map context.
func (w *World) Pathfind(start, dest types.Tile, facing types.Direction) ([]types.Tile, error) {
	if w.current == nil {
		return nil, ErrNoMap
	}
	ctx := context.Background()
	path, err := w.current.Pathfind(w.Snapshot(), start, dest, facing)
	if err != nil {
		w.log.Warn("pathfinding failed to find a path",
			zap.String("map", w.current.Name),
			zap.Int("from_x", start.X), zap.Int("from_y", start.Y),
			zap.Int("to_x", dest.X), zap.Int("to_y", dest.Y),
			zap.Error(err))
		w.metrics.RecordPath(ctx, w.current.Name, -1)
		return nil, err
	}
	w.metrics.RecordPath(ctx, w.current.Name, len(path))
	return path, nil
}

// Update moves every actor by dt seconds in list order.
func (w *World) Update(dt float64) {
	gen := w.generation
	for _, a := range w.Actors() {
		if w.generation != gen {
			return
		}
		if a.world != w {
			continue
		}
		a.Update(dt)
	}
}

// claim moves a's occupancy claim to t.
func (w *World) claim(a *Actor, t types.Tile) {
	for tile, s := range w.occupants {
		if s == a.Slug && tile != t {
			w.release(a, tile)
		}
	}
	w.occupants[t] = a.Slug
}

// release drops a's claim on t. If another actor still stands on t, for
// example after a teleport onto it, the claim passes to that actor.
func (w *World) release(a *Actor, t types.Tile) {
	if w.occupants[t] != a.Slug {
		return
	}
	delete(w.occupants, t)
	for _, other := range w.actors {
		if other != a && other.pathOrigin == nil && other.tile == t {
			w.occupants[t] = other.Slug
			return
		}
	}
}

// speedMultiplier returns the configured multiplier for the surface of t.
func (w *World) speedMultiplier(t types.Tile) float64 {
	if w.current == nil {
		return 1
	}
	key, ok := w.current.SurfaceAt(t)
	if !ok {
		return 1
	}
	if m, ok := w.cfg.SurfaceSpeeds[key]; ok && m > 0 {
		return m
	}
	return 1
}

// validMovement reports whether a may step into the adjacent tile target.
// Besides the map's exit rules, the step is refused while another actor is
// mid-leg into target, or mid-leg from target into a's tile.
func (w *World) validMovement(a *Actor, target types.Tile) bool {
	if a.IgnoreCollisions {
		return true
	}
	if w.current == nil {
		return false
	}

	legal := false
	for _, t := range w.current.Exits(w.Snapshot(), a.tile, a.facing, mapset.New[types.Tile]()) {
		if t == target {
			legal = true
			break
		}
	}
	if !legal {
		return false
	}

	for _, b := range w.actors {
		if b == a || b.pathOrigin == nil || len(b.path) == 0 {
			continue
		}
		bt := b.path[len(b.path)-1]
		if bt == target || (*b.pathOrigin == target && bt == a.tile) {
			return false
		}
	}
	return true
}
