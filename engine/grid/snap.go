package grid

import (
	"fmt"
	"image"
	"math"

	"github.com/nathoo/tilecore/types"
)

// RoundToDivisible rounds x to the nearest multiple of divisor. Exact
// halves go to the even multiple, so 8 snaps to 0 and 24 to 32 on a 16 grid.
func RoundToDivisible(x float64, divisor int) int {
	d := float64(divisor)
	return int(math.RoundToEven(x/d) * d)
}

// SnapInterval rounds value to a multiple of interval. A result equal to
// interval is pulled back to interval-1 so it stays inside the first cell.
func SnapInterval(value float64, interval int) int {
	v := RoundToDivisible(value, interval)
	if v == interval {
		return v - 1
	}
	return v
}

// SnapPoint rounds each coordinate of p to a multiple of size.
func SnapPoint(p, size image.Point) image.Point {
	return image.Point{
		X: RoundToDivisible(float64(p.X), size.X),
		Y: RoundToDivisible(float64(p.Y), size.Y),
	}
}

// PointToGrid snaps a pixel point and converts it to a tile coordinate.
func PointToGrid(p, size image.Point) types.Tile {
	s := SnapPoint(p, size)
	return types.Tile{X: s.X / size.X, Y: s.Y / size.Y}
}

// SnapRect snaps both corners of r to the grid.
func SnapRect(r image.Rectangle, size image.Point) image.Rectangle {
	return image.Rectangle{Min: SnapPoint(r.Min, size), Max: SnapPoint(r.Max, size)}
}

// SnapRectToTiles snaps r and converts it to tile units.
func SnapRectToTiles(r image.Rectangle, size image.Point) image.Rectangle {
	s := SnapRect(r, size)
	return image.Rect(s.Min.X/size.X, s.Min.Y/size.Y, s.Max.X/size.X, s.Max.Y/size.Y)
}

// TilesInsideRect lists the tiles covered by pixel rectangle r, row by row
// from the top, left to right.
func TilesInsideRect(r image.Rectangle, size image.Point) ([]types.Tile, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid grid size %v", size)
	}
	var tiles []types.Tile
	for y := r.Min.Y; y < r.Max.Y; y += size.Y {
		for x := r.Min.X; x < r.Max.X; x += size.X {
			tiles = append(tiles, types.Tile{X: floorDiv(x, size.X), Y: floorDiv(y, size.Y)})
		}
	}
	return tiles, nil
}

// AngleOfPoints returns the screen-space angle from a to b in [0, 2π).
// Screen y grows downward, so it is negated.
func AngleOfPoints(a, b image.Point) float64 {
	angle := math.Atan2(-float64(b.Y-a.Y), float64(b.X-a.X))
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// OrientationByAngle classifies an angle produced by AngleOfPoints for a
// sorted segment. Only exact axis-aligned angles are accepted.
func OrientationByAngle(angle float64) (types.Orientation, error) {
	pi := math.Pi
	switch angle {
	case 3 * pi / 2:
		return types.Vertical, nil
	case 0:
		return types.Horizontal, nil
	}
	return "", fmt.Errorf("collision lines must be axis aligned, got angle %v", angle)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
