package tilemap

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

// Exits returns the neighbors of from that an actor facing facing may move
// into, in down, right, up, left order. Tiles in skip are never returned.
//
// An endure tile allows only its forced direction (the actor's facing when
// several are listed). Otherwise an explicit exit list restricts the
// candidates. Each candidate must be on the map, not walled off by a
// collision line, and enterable: absent from g, or present with properties,
// unoccupied, and accepting entry from the side of approach.
func (m *Map) Exits(g Grid, from types.Tile, facing types.Direction, skip mapset.Set[types.Tile]) []types.Tile {
	allowed := func(types.Direction) bool { return true }
	if props := g[from]; props != nil {
		switch {
		case len(props.Endure) == 1:
			forced := props.Endure[0]
			allowed = func(d types.Direction) bool { return d == forced }
		case len(props.Endure) > 1 && grid.Valid(facing):
			allowed = func(d types.Direction) bool { return d == facing }
		case len(props.ExitFrom) > 0:
			allowed = func(d types.Direction) bool { return grid.Contains(props.ExitFrom, d) }
		}
	}

	var out []types.Tile
	for _, d := range grid.ExitOrder {
		if !allowed(d) {
			continue
		}
		next := grid.Neighbor(from, d)
		if skip.Has(next) {
			continue
		}
		if !m.InBounds(next) {
			continue
		}
		if m.Lines.Has(types.CollisionLine{Tile: from, Direction: d}) {
			continue
		}
		if props, ok := g[next]; ok && !enterable(props, d) {
			continue
		}
		out = append(out, next)
	}
	return out
}

// enterable reports whether a tile with props can be entered moving in d.
func enterable(props *types.RegionProperties, d types.Direction) bool {
	if props == nil || props.Entity != "" {
		return false
	}
	if len(props.EnterFrom) == 0 {
		return true
	}
	side, _ := grid.Opposite(d)
	return grid.Contains(props.EnterFrom, side)
}
