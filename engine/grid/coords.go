package grid

import (
	"fmt"
	"image"
	"sort"

	"github.com/nathoo/tilecore/types"
)

// InBounds reports whether t lies inside a map of the given size in tiles.
func InBounds(t types.Tile, size image.Point) bool {
	return t.X >= 0 && t.Y >= 0 && t.X < size.X && t.Y < size.Y
}

// Coords returns the in-bounds tiles at distance |radius| from tile in the
// four cardinal directions, ordered down, right, left, up. Radius 0 returns
// the tile itself.
func Coords(tile types.Tile, size image.Point, radius int) ([]types.Tile, error) {
	if !InBounds(tile, size) {
		return nil, fmt.Errorf("tile %v outside map of size %v", tile, size)
	}
	if radius < 0 {
		radius = -radius
	}
	if radius == 0 {
		return []types.Tile{tile}, nil
	}
	candidates := []types.Tile{
		{X: tile.X, Y: tile.Y + radius},
		{X: tile.X + radius, Y: tile.Y},
		{X: tile.X - radius, Y: tile.Y},
		{X: tile.X, Y: tile.Y - radius},
	}
	var out []types.Tile
	for _, c := range candidates {
		if InBounds(c, size) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tiles within radius %d of %v", radius, tile)
	}
	return out, nil
}

// CoordsExt returns every in-bounds tile within Chebyshev distance radius of
// tile, excluding tile itself, sorted by x then y.
func CoordsExt(tile types.Tile, size image.Point, radius int) ([]types.Tile, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %d", radius)
	}
	var out []types.Tile
	for x := tile.X - radius; x <= tile.X+radius; x++ {
		for y := tile.Y - radius; y <= tile.Y+radius; y++ {
			c := types.Tile{X: x, Y: y}
			if c == tile || !InBounds(c, size) {
				continue
			}
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tiles within radius %d of %v", radius, tile)
	}
	SortTiles(out)
	return out, nil
}

// CoordDirection returns the tile radius steps from tile toward d.
func CoordDirection(tile types.Tile, d types.Direction, size image.Point, radius int) (types.Tile, error) {
	if size.X <= 0 || size.Y <= 0 {
		return types.Tile{}, fmt.Errorf("invalid map size %v", size)
	}
	if !Valid(d) {
		return types.Tile{}, fmt.Errorf("invalid direction %q", d)
	}
	dx, dy := Vector(d)
	out := types.Tile{X: tile.X + dx*radius, Y: tile.Y + dy*radius}
	if !InBounds(out, size) {
		return types.Tile{}, fmt.Errorf("tile %v outside map of size %v", out, size)
	}
	return out, nil
}

// SortTiles sorts ts by x then y.
func SortTiles(ts []types.Tile) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].X != ts[j].X {
			return ts[i].X < ts[j].X
		}
		return ts[i].Y < ts[j].Y
	})
}

// Collide reports whether tile lies inside the zone with top-left (x, y)
// and size w×h, all in tiles. Empty zones contain nothing.
func Collide(x, y, w, h int, tile types.Tile) bool {
	return x < tile.X+1 && y < tile.Y+1 && x+w > tile.X && y+h > tile.Y
}
