package actions

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/zyedidia/generic/mapset"
	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

// actorAction is embedded by actions that drive one character.
type actorAction struct {
	events.Base
	slug string
}

func (a *actorAction) Subject() string { return a.slug }

// actor resolves the character, logging when it is missing.
func (a *actorAction) actor(s *session.Session, verb string) (*world.Actor, bool) {
	act, ok := s.Actor(a.slug)
	if !ok {
		s.Log.Warn("character not found", zap.String("action", verb), zap.String("character", a.slug))
	}
	return act, ok
}

// char_face <character>,<direction or character>
type charFace struct {
	actorAction
	target string
}

func newCharFace(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(2)
	a := &charFace{actorAction: actorAction{slug: p.String(0)}, target: p.String(1)}
	return a, p.Err()
}

func (a *charFace) Start(s *session.Session) {
	act, ok := a.actor(s, "char_face")
	if !ok {
		return
	}
	if d, err := grid.ParseDirection(a.target); err == nil {
		act.SetFacing(d)
		return
	}
	other, ok := s.Actor(a.target)
	if !ok {
		s.Log.Warn("char_face: unknown target", zap.String("target", a.target))
		return
	}
	act.SetFacing(grid.DirectionTo(act.Tile(), other.Tile()))
}

// char_move <character>,<direction> [tiles][,...]. Blocks until the
// character stops.
type charMove struct {
	actorAction
	moves   []move
	started bool
}

type move struct {
	dir   types.Direction
	tiles int
}

func newCharMove(params []string) (events.Action, error) {
	if len(params) < 2 || params[0] == "" {
		return nil, fmt.Errorf("char_move needs a character and a move: %w", events.ErrBadParams)
	}
	a := &charMove{actorAction: actorAction{slug: params[0]}}
	for _, raw := range params[1:] {
		m, err := parseMove(raw)
		if err != nil {
			return nil, fmt.Errorf("char_move: %v: %w", err, events.ErrBadParams)
		}
		a.moves = append(a.moves, m)
	}
	return a, nil
}

func parseMove(raw string) (move, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 || len(fields) > 2 {
		return move{}, fmt.Errorf("bad move %q", raw)
	}
	d, err := grid.ParseDirection(fields[0])
	if err != nil {
		return move{}, err
	}
	n := 1
	if len(fields) == 2 {
		if n, err = strconv.Atoi(fields[1]); err != nil || n < 0 {
			return move{}, fmt.Errorf("bad tile count in %q", raw)
		}
	}
	return move{dir: d, tiles: n}, nil
}

func (a *charMove) Start(s *session.Session) {
	act, ok := a.actor(s, "char_move")
	if !ok {
		a.Stop()
		return
	}
	var path []types.Tile
	cur := act.Tile()
	for _, m := range a.moves {
		for i := 0; i < m.tiles; i++ {
			cur = grid.Neighbor(cur, m.dir)
			path = append(path, cur)
		}
	}
	if len(path) == 0 {
		a.Stop()
		return
	}
	act.SetPath(path)
}

func (a *charMove) Update(s *session.Session) {
	act, ok := s.Actor(a.slug)
	if !ok || (!act.Moving() && len(act.Path()) == 0) {
		a.Stop()
	}
}

// char_pathfind <character>,<x>,<y>. Blocks until the character stops.
type charPathfind struct {
	actorAction
	dest types.Tile
}

func newCharPathfind(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(3)
	a := &charPathfind{
		actorAction: actorAction{slug: p.String(0)},
		dest:        types.Tile{X: p.Int(1), Y: p.Int(2)},
	}
	return a, p.Err()
}

func (a *charPathfind) Start(s *session.Session) {
	act, ok := a.actor(s, "char_pathfind")
	if !ok || !act.Pathfind(a.dest) {
		a.Stop()
	}
}

func (a *charPathfind) Update(s *session.Session) {
	act, ok := s.Actor(a.slug)
	if !ok || (!act.Moving() && len(act.Path()) == 0) {
		a.Stop()
	}
}

// char_stop <character>
type charStop struct{ actorAction }

func newCharStop(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(1)
	return &charStop{actorAction{slug: p.String(0)}}, p.Err()
}

func (a *charStop) Start(s *session.Session) {
	if act, ok := a.actor(s, "char_stop"); ok {
		act.CancelMovement()
	}
}

// char_speed <character>,<walk|run|tiles per second>
type charSpeed struct {
	actorAction
	speed string
}

func newCharSpeed(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(2)
	a := &charSpeed{actorAction: actorAction{slug: p.String(0)}, speed: p.String(1)}
	if err := p.Err(); err != nil {
		return nil, err
	}
	switch a.speed {
	case "walk", "run":
	default:
		if f, err := strconv.ParseFloat(a.speed, 64); err != nil || f <= 0 {
			return nil, fmt.Errorf("char_speed: bad speed %q: %w", a.speed, events.ErrBadParams)
		}
	}
	return a, nil
}

func (a *charSpeed) Start(s *session.Session) {
	act, ok := a.actor(s, "char_speed")
	if !ok {
		return
	}
	cfg := s.World.Config()
	switch a.speed {
	case "walk":
		act.MoveRate = cfg.WalkRate
	case "run":
		act.MoveRate = cfg.RunRate
	default:
		act.MoveRate, _ = strconv.ParseFloat(a.speed, 64)
	}
}

// char_wander <character>[,frequency][,x1,y1,x2,y2]. Schedules random
// single steps every (0.5..1) × frequency seconds, within the optional
// inclusive bounds. Frequency 0 stops wandering.
type charWander struct {
	actorAction
	frequency float64
	bounds    *image.Rectangle
}

func newCharWander(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(6)
	a := &charWander{
		actorAction: actorAction{slug: p.String(0)},
		frequency:   p.OptFloat(1, 1),
	}
	if p.Len() > 2 {
		r := image.Rect(p.Int(2), p.Int(3), p.Int(4)+1, p.Int(5)+1)
		a.bounds = &r
	}
	return a, p.Err()
}

func (a *charWander) Start(s *session.Session) {
	key := "wander:" + a.slug
	if a.frequency == 0 {
		s.Unschedule(key)
		return
	}
	freq := min(5, max(0.5, a.frequency))

	var schedule func()
	schedule = func() {
		act, ok := s.Actor(a.slug)
		if !ok {
			return
		}
		delay := (0.5 + 0.5*float64(s.RNG.Intn(1000))/1000) * freq
		s.Schedule(key, delay, schedule)
		wanderStep(s, act, a.bounds)
	}
	schedule()
}

// wanderStep moves act one random legal tile unless it is busy or the
// player is facing it.
func wanderStep(s *session.Session, act *world.Actor, bounds *image.Rectangle) {
	if act.Moving() || len(act.Path()) > 0 {
		return
	}
	if p, ok := s.Player(); ok && p != act && grid.Neighbor(p.Tile(), p.Facing()) == act.Tile() {
		return
	}
	m := s.Map()
	if m == nil {
		return
	}
	exits := m.Exits(s.World.Snapshot(), act.Tile(), act.Facing(), mapset.New[types.Tile]())
	if len(exits) == 0 {
		return
	}
	next := exits[s.RNG.Intn(len(exits))]
	if bounds != nil && !image.Pt(next.X, next.Y).In(*bounds) {
		return
	}
	act.SetPath([]types.Tile{next})
}
