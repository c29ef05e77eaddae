// Package grid provides pure tile-grid primitives: direction vectors,
// snapping, rectangle enumeration and line rasterization.
package grid

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/nathoo/tilecore/types"
)

// ExitOrder is the fixed order in which neighbors are considered.
var ExitOrder = [4]types.Direction{types.Down, types.Right, types.Up, types.Left}

// AllDirections lists every direction in alphabetical order.
var AllDirections = []types.Direction{types.Down, types.Left, types.Right, types.Up}

var vectors = map[types.Direction][2]int{
	types.Up:    {0, -1},
	types.Down:  {0, 1},
	types.Left:  {-1, 0},
	types.Right: {1, 0},
}

var opposites = map[types.Direction]types.Direction{
	types.Up:    types.Down,
	types.Down:  types.Up,
	types.Left:  types.Right,
	types.Right: types.Left,
}

// shortPath maps single-letter path steps to directions.
var shortPath = map[rune]types.Direction{
	'u': types.Up,
	'd': types.Down,
	'l': types.Left,
	'r': types.Right,
}

// Valid reports whether d is one of the four cardinal directions.
func Valid(d types.Direction) bool {
	_, ok := vectors[d]
	return ok
}

// Vector returns the unit tile offset for d. Unknown directions yield (0, 0).
func Vector(d types.Direction) (dx, dy int) {
	v := vectors[d]
	return v[0], v[1]
}

// Opposite returns the direction facing the other way.
func Opposite(d types.Direction) (types.Direction, error) {
	o, ok := opposites[d]
	if !ok {
		return "", fmt.Errorf("invalid direction %q", d)
	}
	return o, nil
}

// Neighbor returns the tile adjacent to t in direction d.
func Neighbor(t types.Tile, d types.Direction) types.Tile {
	dx, dy := Vector(d)
	return types.Tile{X: t.X + dx, Y: t.Y + dy}
}

// ParseDirection parses a single direction name, case-insensitively.
func ParseDirection(s string) (types.Direction, error) {
	d := types.Direction(strings.ToLower(strings.TrimSpace(s)))
	if !Valid(d) {
		return "", fmt.Errorf("invalid direction %q", s)
	}
	return d, nil
}

// ParseDirections parses a comma separated direction list. The result is
// de-duplicated and sorted. Blank input is an error.
func ParseDirections(s string) ([]types.Direction, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty direction list")
	}
	seen := map[types.Direction]bool{}
	var out []types.Direction
	for _, part := range strings.Split(s, ",") {
		d, err := ParseDirection(part)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	SortDirections(out)
	return out, nil
}

// SortDirections sorts ds alphabetically in place.
func SortDirections(ds []types.Direction) {
	sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
}

// Contains reports whether d is in ds.
func Contains(ds []types.Direction, d types.Direction) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

// DirectionBetween returns the dominant direction from (fx, fy) toward
// (tx, ty). Vertical wins ties; identical points yield Down.
func DirectionBetween(fx, fy, tx, ty float64) types.Direction {
	dy := fy - ty
	dx := fx - tx
	if math.Abs(dy) >= math.Abs(dx) {
		if dy > 0 {
			return types.Up
		}
		return types.Down
	}
	if dx > 0 {
		return types.Left
	}
	return types.Right
}

// DirectionTo is DirectionBetween for tiles.
func DirectionTo(from, to types.Tile) types.Direction {
	return DirectionBetween(float64(from.X), float64(from.Y), float64(to.X), float64(to.Y))
}

// TranslateShortPath expands a path such as "uurrd" into the tiles visited
// starting from start (start itself excluded).
func TranslateShortPath(path string, start types.Tile) ([]types.Tile, error) {
	tiles := make([]types.Tile, 0, len(path))
	cur := start
	for _, r := range strings.ToLower(path) {
		d, ok := shortPath[r]
		if !ok {
			return nil, fmt.Errorf("invalid path step %q in %q", r, path)
		}
		cur = Neighbor(cur, d)
		tiles = append(tiles, cur)
	}
	return tiles, nil
}
