// Package tilemap holds the in-memory model of a loaded map: collision
// regions, collision lines, surfaces and event objects, plus exit
// computation and pathfinding over it.
package tilemap

import (
	"image"

	"github.com/lafriks/go-tiled"
	"github.com/zyedidia/generic/mapset"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

// Grid is a collision snapshot. A tile absent from the grid is free; a tile
// present with nil properties is blocked outright.
type Grid map[types.Tile]*types.RegionProperties

// Map is a loaded map. It is replaced wholesale on map change.
type Map struct {
	Name     string // file base name without extension
	Filename string
	Width    int // tiles
	Height   int // tiles
	TileSize image.Point

	Collision Grid
	Lines     mapset.Set[types.CollisionLine]
	Surface   map[types.Tile]string

	Events    []types.EventObject
	Inits     []types.EventObject
	Interacts []types.EventObject

	Properties map[string]string
	Document   *tiled.Map // nil for maps built in code
}

// New returns an empty map of the given size in tiles.
func New(name string, width, height int) *Map {
	return &Map{
		Name:       name,
		Width:      width,
		Height:     height,
		TileSize:   image.Pt(16, 16),
		Collision:  Grid{},
		Lines:      mapset.New[types.CollisionLine](),
		Surface:    map[types.Tile]string{},
		Properties: map[string]string{},
	}
}

// Size returns the map dimensions in tiles.
func (m *Map) Size() image.Point {
	return image.Pt(m.Width, m.Height)
}

// InBounds reports whether t is on the map.
func (m *Map) InBounds(t types.Tile) bool {
	return grid.InBounds(t, m.Size())
}

// Block marks t as impassable.
func (m *Map) Block(t types.Tile) {
	m.Collision[t] = nil
}

// SetRegion stores region properties for t, replacing any previous entry.
func (m *Map) SetRegion(t types.Tile, props *types.RegionProperties) {
	m.Collision[t] = props
}

// AddLines records collision lines.
func (m *Map) AddLines(lines ...types.CollisionLine) {
	for _, l := range lines {
		m.Lines.Put(l)
	}
}

// SetSurface labels t with a terrain key such as "surfable".
func (m *Map) SetSurface(t types.Tile, key string) {
	m.Surface[t] = key
}

// SurfaceAt returns the terrain key of t, if any.
func (m *Map) SurfaceAt(t types.Tile) (string, bool) {
	k, ok := m.Surface[t]
	return k, ok
}

// TilesWithKey returns all tiles whose region properties carry key, sorted.
func (m *Map) TilesWithKey(key string) []types.Tile {
	var out []types.Tile
	for t, p := range m.Collision {
		if p != nil && p.Key == key {
			out = append(out, t)
		}
	}
	grid.SortTiles(out)
	return out
}

// Snapshot copies the collision map and overlays occupied tiles. Occupied
// tiles keep their directional rules and gain the occupant's slug.
func (m *Map) Snapshot(occupants map[types.Tile]string) Grid {
	g := make(Grid, len(m.Collision)+len(occupants))
	for t, p := range m.Collision {
		g[t] = p
	}
	for t, slug := range occupants {
		var rp types.RegionProperties
		if p := m.Collision[t]; p != nil {
			rp = *p
		}
		rp.Entity = slug
		g[t] = &rp
	}
	return g
}

// AllEvents returns init, standing and interact events in that order.
func (m *Map) AllEvents() []types.EventObject {
	out := make([]types.EventObject, 0, len(m.Inits)+len(m.Events)+len(m.Interacts))
	out = append(out, m.Inits...)
	out = append(out, m.Events...)
	return append(out, m.Interacts...)
}
