package grid

import (
	"fmt"
	"image"
	"sort"

	"github.com/nathoo/tilecore/types"
)

// Bresenham rasterizes the segment from a to b in tile units.
func Bresenham(a, b types.Tile, includeEnd bool) []types.Tile {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	errTerm := dx + dy
	x, y := a.X, a.Y
	var out []types.Tile
	for {
		if x == b.X && y == b.Y {
			if includeEnd {
				out = append(out, types.Tile{X: x, Y: y})
			}
			return out
		}
		out = append(out, types.Tile{X: x, Y: y})
		e2 := 2 * errTerm
		if e2 >= dy {
			errTerm += dy
			x += sx
		}
		if e2 <= dx {
			errTerm += dx
			y += sy
		}
	}
}

// LineCollisions converts a pixel polyline into blocked (tile, direction)
// pairs. Each segment is snapped to the grid and must be axis aligned; a
// horizontal wall blocks travel across it in both vertical directions and a
// vertical wall in both horizontal directions.
func LineCollisions(points []image.Point, size image.Point) ([]types.CollisionLine, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("collision line needs at least 2 points, got %d", len(points))
	}
	var out []types.CollisionLine
	for i := 0; i+1 < len(points); i++ {
		ends := []types.Tile{PointToGrid(points[i], size), PointToGrid(points[i+1], size)}
		sort.Slice(ends, func(a, b int) bool {
			if ends[a].X != ends[b].X {
				return ends[a].X < ends[b].X
			}
			return ends[a].Y < ends[b].Y
		})
		if ends[0] == ends[1] {
			continue
		}
		angle := AngleOfPoints(image.Pt(ends[0].X, ends[0].Y), image.Pt(ends[1].X, ends[1].Y))
		orientation, err := OrientationByAngle(angle)
		if err != nil {
			return nil, fmt.Errorf("segment %v-%v: %w", points[i], points[i+1], err)
		}
		for _, t := range Bresenham(ends[0], ends[1], false) {
			switch orientation {
			case types.Vertical:
				other := types.Tile{X: t.X - 1, Y: t.Y}
				out = append(out,
					types.CollisionLine{Tile: t, Direction: types.Left},
					types.CollisionLine{Tile: other, Direction: types.Right},
				)
			case types.Horizontal:
				other := types.Tile{X: t.X, Y: t.Y - 1}
				out = append(out,
					types.CollisionLine{Tile: other, Direction: types.Down},
					types.CollisionLine{Tile: t, Direction: types.Up},
				)
			}
		}
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
