package world

import (
	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

// Actor is a character that moves tile by tile. Position is continuous;
// the occupied tile is derived from it and registered with the World only
// when the position is set explicitly (spawn, teleport, waypoint arrival).
type Actor struct {
	Slug             string
	Persistent       bool // survives map changes (the player)
	IgnoreCollisions bool
	MoveRate         float64 // tiles per second

	world *World

	position Vec3
	velocity Vec3
	tile     types.Tile
	facing   types.Direction

	path          []types.Tile // next waypoint last
	pathOrigin    *types.Tile
	pathfinding   *types.Tile
	moveDirection types.Direction
	walking       bool

	retried bool // a blocked leg already re-pathed this frame
}

// NewActor returns an actor facing down. A zero move rate is replaced with
// the World's walk rate when the actor is added.
func NewActor(slug string) *Actor {
	return &Actor{Slug: slug, facing: types.Down}
}

func (a *Actor) Tile() types.Tile { return a.tile }
func (a *Actor) Position() Vec3 { return a.position }
func (a *Actor) Velocity() Vec3 { return a.velocity }
func (a *Actor) Facing() types.Direction { return a.facing }
func (a *Actor) Walking() bool { return a.walking }
func (a *Actor) Moving() bool { return !a.velocity.IsZero() }
func (a *Actor) MoveDirection() types.Direction { return a.moveDirection }

// SetFacing turns the actor without moving it. Invalid directions are
// ignored.
func (a *Actor) SetFacing(d types.Direction) {
	if grid.Valid(d) {
		a.facing = d
	}
}

// Path returns the remaining waypoints in travel order.
func (a *Actor) Path() []types.Tile {
	out := make([]types.Tile, len(a.path))
	for i, t := range a.path {
		out[len(a.path)-1-i] = t
	}
	return out
}

// MoveDestination returns the waypoint the actor is heading to, if any.
func (a *Actor) MoveDestination() (types.Tile, bool) {
	if len(a.path) == 0 {
		return types.Tile{}, false
	}
	return a.path[len(a.path)-1], true
}

// PathfindDestination returns the tile the actor is pathfinding to, if any.
func (a *Actor) PathfindDestination() (types.Tile, bool) {
	if a.pathfinding == nil {
		return types.Tile{}, false
	}
	return *a.pathfinding, true
}

// SetMoveDirection records a raw movement intent, as from held input. The
// actor keeps stepping in d until CancelMovement.
func (a *Actor) SetMoveDirection(d types.Direction) {
	if grid.Valid(d) {
		a.moveDirection = d
	}
}

// SetPath replaces the path with tiles given in travel order and starts
// the first leg.
func (a *Actor) SetPath(tiles []types.Tile) {
	a.path = a.path[:0]
	for i := len(tiles) - 1; i >= 0; i-- {
		a.path = append(a.path, tiles[i])
	}
	a.pathOrigin = nil
	if len(a.path) > 0 {
		a.nextWaypoint()
	}
}

// Pathfind searches for a route to dest and starts walking it. The
// destination is remembered so a blocked route is searched again. It
// reports whether a route was found.
func (a *Actor) Pathfind(dest types.Tile) bool {
	d := dest
	a.pathfinding = &d
	if a.world == nil || a.world.current == nil {
		return false
	}
	path, err := a.world.Pathfind(a.tile, dest, a.facing)
	if err != nil {
		return false
	}
	if len(path) == 0 {
		a.pathfinding = nil
		return true
	}
	a.SetPath(path)
	return true
}

// MoveOneTile appends a waypoint one tile away in d.
func (a *Actor) MoveOneTile(d types.Direction) {
	a.path = append(a.path, grid.Neighbor(a.tile, d))
}

// StopMoving zeroes velocity.
func (a *Actor) StopMoving() {
	a.velocity = Vec3{}
	a.walking = false
}

// CancelPath forgets the path and any pathfinding goal. The actor may keep
// moving if a move direction is set.
func (a *Actor) CancelPath() {
	a.path = a.path[:0]
	a.pathfinding = nil
	a.pathOrigin = nil
}

// CancelMovement stops gracefully: a leg in progress is finished, a leg
// that has not left its origin is discarded.
func (a *Actor) CancelMovement() {
	a.moveDirection = ""
	switch {
	case a.pathOrigin != nil && a.position == At(*a.pathOrigin):
		a.AbortMovement()
	case len(a.path) > 0 && a.Moving():
		a.path = a.path[len(a.path)-1:]
		a.pathfinding = nil
	default:
		a.StopMoving()
		a.CancelPath()
	}
}

// AbortMovement returns the actor to the start of its current leg and
// stops.
func (a *Actor) AbortMovement() {
	if a.pathOrigin != nil {
		a.setPosition(*a.pathOrigin)
	}
	a.moveDirection = ""
	a.StopMoving()
	a.CancelPath()
}

// Teleport places the actor on t, cancelling all movement.
func (a *Actor) Teleport(t types.Tile) {
	a.moveDirection = ""
	a.StopMoving()
	a.CancelPath()
	a.setPosition(t)
}

// setPosition snaps the actor to t and moves its occupancy claim there.
func (a *Actor) setPosition(t types.Tile) {
	a.position = At(t)
	a.tile = t
	if a.world != nil {
		a.world.claim(a, t)
	}
}

// Update advances the actor by dt seconds.
func (a *Actor) Update(dt float64) {
	a.retried = false

	// 1. Integrate. During a leg the actor stays on its origin tile until
	// the waypoint is reached.
	a.position = a.position.Add(a.velocity.Scale(dt))
	if a.pathOrigin == nil {
		a.tile = a.position.Tile()
	}

	// 2. Re-path a blocked pathfinding request.
	if a.pathfinding != nil && len(a.path) == 0 {
		a.Pathfind(*a.pathfinding)
	}

	// 3. Follow the path.
	if len(a.path) > 0 {
		if a.pathOrigin != nil {
			a.checkWaypoint()
		} else {
			a.nextWaypoint()
		}
	}

	// 4. Raw movement intent.
	if a.moveDirection != "" {
		if len(a.path) > 0 && !a.Moving() {
			a.CancelPath()
		}
		if len(a.path) == 0 {
			a.MoveOneTile(a.moveDirection)
			a.nextWaypoint()
		}
	}

	// 5. Nothing left to do.
	if len(a.path) == 0 {
		a.CancelMovement()
	}
}

// nextWaypoint starts the leg toward the last path element, or holds
// position if it is blocked.
func (a *Actor) nextWaypoint() {
	target := a.path[len(a.path)-1]
	dir := grid.DirectionTo(a.tile, target)
	a.facing = dir

	if a.world != nil && !a.world.validMovement(a, target) {
		a.StopMoving()
		if a.pathfinding != nil && !a.retried {
			a.retried = true
			if slug, ok := a.world.Occupant(target); ok {
				a.world.log.Debug("waypoint occupied, finding new path",
					zap.String("actor", a.Slug),
					zap.String("occupant", slug),
					zap.Int("x", target.X), zap.Int("y", target.Y))
			}
			a.Pathfind(*a.pathfinding)
		}
		return
	}

	origin := a.tile
	a.pathOrigin = &origin
	rate := a.MoveRate
	if a.world != nil {
		a.world.release(a, origin)
		rate *= a.world.speedMultiplier(origin)
	}
	a.velocity = Heading(dir).Scale(rate)
	a.walking = true
}

// checkWaypoint finishes the current leg once the distance travelled from
// its origin reaches the leg length.
func (a *Actor) checkWaypoint() {
	target := a.path[len(a.path)-1]
	origin := At(*a.pathOrigin)
	expected := origin.Dist(At(target))
	traveled := a.position.Dist(origin)
	if traveled < expected {
		return
	}

	a.setPosition(target)
	a.path = a.path[:len(a.path)-1]
	a.pathOrigin = nil
	a.checkContinue()
	if len(a.path) > 0 {
		a.nextWaypoint()
	}
}

// checkContinue pushes the forced step of an endure tile.
func (a *Actor) checkContinue() {
	if a.world == nil || a.world.current == nil {
		return
	}
	props := a.world.current.Collision[a.tile]
	if props == nil || len(props.Endure) == 0 {
		return
	}
	dir := a.facing
	if len(props.Endure) == 1 {
		dir = props.Endure[0]
	}
	next := grid.Neighbor(a.tile, dir)
	if n := len(a.path); n > 0 && a.path[n-1] == next {
		return
	}
	a.path = append(a.path, next)
}
