// Package session holds the context threaded through every condition and
// action: the world, the variable store, the RNG and per-verb scratch
// state. Nothing in the engine reaches for it globally.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/state"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/observe"
)

// PlayerAlias names the player in script parameters.
const PlayerAlias = "player"

// ErrNoLoader is returned by ChangeMap when no MapLoader is configured.
var ErrNoLoader = errors.New("no map loader")

// MapLoader resolves a map name to a loaded map.
type MapLoader interface {
	LoadMap(name string) (*tilemap.Map, error)
}

// MapLoaderFunc adapts a function to MapLoader.
type MapLoaderFunc func(name string) (*tilemap.Map, error)

func (f MapLoaderFunc) LoadMap(name string) (*tilemap.Map, error) { return f(name) }

// Session is the shared context of one running game.
type Session struct {
	World   *world.World
	State   *state.State
	RNG     *state.RNG
	Log     *zap.Logger
	Metrics *observe.Metrics
	Maps    MapLoader

	PlayerSlug string

	// Interacting is set while the action button is being handled.
	Interacting bool

	persist map[string]map[string]any
	output  []string
	tasks   []*task
}

type task struct {
	key   string
	delay float64
	fn    func()
}

// New creates a session around w. The per-name persist dictionaries and
// scheduled tasks are cleared whenever w changes map.
func New(w *world.World, st *state.State, rng *state.RNG, log *zap.Logger, metrics *observe.Metrics) *Session {
	s := &Session{
		World:      w,
		State:      st,
		RNG:        rng,
		Log:        observe.OrNop(log),
		Metrics:    observe.OrDefault(metrics),
		PlayerSlug: PlayerAlias,
		persist:    make(map[string]map[string]any),
	}
	w.OnMapChange(func(*tilemap.Map) {
		clear(s.persist)
		s.tasks = nil
	})
	return s
}

// Actor resolves a script character name. "player" maps to the player's
// slug.
func (s *Session) Actor(name string) (*world.Actor, bool) {
	if name == PlayerAlias {
		name = s.PlayerSlug
	}
	return s.World.Actor(name)
}

// Player returns the player actor, if spawned.
func (s *Session) Player() (*world.Actor, bool) {
	return s.World.Actor(s.PlayerSlug)
}

// Map returns the current map.
func (s *Session) Map() *tilemap.Map {
	return s.World.Map()
}

// Persist returns the scratch dictionary for the named verb, creating it on
// first use.
func (s *Session) Persist(name string) map[string]any {
	d, ok := s.persist[name]
	if !ok {
		d = make(map[string]any)
		s.persist[name] = d
	}
	return d
}

// Say queues a line of player-visible text.
func (s *Session) Say(text string) {
	s.output = append(s.output, text)
}

// Drain returns the queued text and clears it.
func (s *Session) Drain() []string {
	out := s.output
	s.output = nil
	return out
}

// ChangeMap loads the named map and makes it current.
func (s *Session) ChangeMap(ctx context.Context, name string) error {
	if s.Maps == nil {
		return ErrNoLoader
	}
	m, err := s.Maps.LoadMap(name)
	if err != nil {
		return fmt.Errorf("changing map to %s: %w", name, err)
	}
	s.World.ChangeMap(ctx, m)
	return nil
}

// Schedule runs fn once after delay seconds of game time. A task scheduled
// under an existing key replaces it.
func (s *Session) Schedule(key string, delay float64, fn func()) {
	s.Unschedule(key)
	s.tasks = append(s.tasks, &task{key: key, delay: delay, fn: fn})
}

// Unschedule drops the task with key, if any.
func (s *Session) Unschedule(key string) {
	for i, t := range s.tasks {
		if t.key == key {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

// Scheduled reports whether a task with key is pending.
func (s *Session) Scheduled(key string) bool {
	for _, t := range s.tasks {
		if t.key == key {
			return true
		}
	}
	return false
}

// RunTasks advances scheduled tasks by dt and runs those that are due, in
// scheduling order. Tasks scheduled while running wait for the next call.
// A task that changes the map discards the due tasks after it, since they
// belong to the map that was left.
func (s *Session) RunTasks(dt float64) {
	pending := s.tasks
	s.tasks = nil
	var due []*task
	for _, t := range pending {
		t.delay -= dt
		if t.delay <= 0 {
			due = append(due, t)
			continue
		}
		s.tasks = append(s.tasks, t)
	}
	gen := s.World.Generation()
	for _, t := range due {
		if s.World.Generation() != gen {
			return
		}
		t.fn()
	}
}
