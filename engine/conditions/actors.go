package conditions

import (
	"fmt"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

func collide(c types.MapCondition, t types.Tile) bool {
	return grid.Collide(c.X, c.Y, c.Width, c.Height, t)
}

// zoneTiles lists the tiles of the condition's zone, column by column.
func zoneTiles(c types.MapCondition) []types.Tile {
	var out []types.Tile
	for w := 0; w < c.Width; w++ {
		for h := 0; h < c.Height; h++ {
			out = append(out, types.Tile{X: c.X + w, Y: c.Y + h})
		}
	}
	return out
}

// charExists: char_exists <character>
func charExists(s *session.Session, c types.MapCondition) bool {
	_, ok := s.Actor(param(c, 0))
	return ok
}

// charAt: char_at <character>. True while the character stands in the
// zone.
func charAt(s *session.Session, c types.MapCondition) bool {
	a, ok := s.Actor(param(c, 0))
	return ok && collide(c, a.Tile())
}

// charMoving: char_moving <character>
func charMoving(s *session.Session, c types.MapCondition) bool {
	a, ok := s.Actor(param(c, 0))
	return ok && a.Moving()
}

// charFacing: char_facing <character>,<direction>
func charFacing(s *session.Session, c types.MapCondition) bool {
	a, ok := s.Actor(param(c, 0))
	if !ok {
		return false
	}
	d, err := grid.ParseDirection(param(c, 1))
	return err == nil && a.Facing() == d
}

// charMoved: char_moved <character>. True once, in the frame a character
// that was heading into the zone arrives there.
func charMoved(s *session.Session, c types.MapCondition) bool {
	a, ok := s.Actor(param(c, 0))
	if !ok {
		return false
	}
	return movedInto(s, "char_moved", c, a)
}

// playerMoved: player_moved
func playerMoved(s *session.Session, c types.MapCondition) bool {
	a, ok := s.Player()
	if !ok {
		return false
	}
	return movedInto(s, "player_moved", c, a)
}

// movedInto remembers the actor's last destination per condition and
// fires when the actor stands in the zone and the destination has just
// changed from a remembered one.
func movedInto(s *session.Session, name string, c types.MapCondition, a *world.Actor) bool {
	persist := s.Persist(name)
	key := fmt.Sprintf("%s|%+v", a.Slug, c)

	var dest *types.Tile
	if d, ok := a.MoveDestination(); ok {
		dest = &d
	}
	last, _ := persist[key].(*types.Tile)

	moved := !sameTile(dest, last)
	collided := collide(c, a.Tile())
	persist[key] = dest

	if collided && moved && last != nil {
		persist[key] = (*types.Tile)(nil)
		return true
	}
	return false
}

func sameTile(a, b *types.Tile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// facingOneOf reports whether a is adjacent to and facing one of tiles.
func facingOneOf(a *world.Actor, tiles []types.Tile) bool {
	for _, t := range tiles {
		if grid.Neighbor(a.Tile(), a.Facing()) == t {
			return true
		}
	}
	return false
}

// playerFacingTile: player_facing_tile. True while the player is next to
// and facing a tile of the zone.
func playerFacingTile(s *session.Session, c types.MapCondition) bool {
	p, ok := s.Player()
	if !ok {
		return false
	}
	return facingOneOf(p, zoneTiles(c))
}

// charFacingTile: char_facing_tile <character>[,label]. Without a label the
// zone's tiles are checked; with one, the neighboring tiles carrying that
// surface or region key ("surfable", "door", ...).
func charFacingTile(s *session.Session, c types.MapCondition) bool {
	a, ok := s.Actor(param(c, 0))
	if !ok {
		return false
	}
	label := param(c, 1)
	if label == "" {
		return facingOneOf(a, zoneTiles(c))
	}

	m := s.Map()
	if m == nil {
		return false
	}
	next := grid.Neighbor(a.Tile(), a.Facing())
	if !m.InBounds(next) {
		return false
	}
	if key, ok := m.SurfaceAt(next); ok && key == label {
		return true
	}
	props := m.Collision[next]
	return props != nil && props.Key == label
}

// toTalk: to_talk <character>. True while the action button is handled and
// the player is next to and facing the character.
func toTalk(s *session.Session, c types.MapCondition) bool {
	if !s.Interacting {
		return false
	}
	p, ok := s.Player()
	if !ok {
		return false
	}
	npc, ok := s.Actor(param(c, 0))
	if !ok || npc == p {
		return false
	}
	return grid.Neighbor(p.Tile(), p.Facing()) == npc.Tile()
}
