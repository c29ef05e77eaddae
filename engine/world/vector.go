package world

import (
	"math"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

// Vec3 is a continuous position or velocity in tile units. Z is carried for
// layered maps and is not used by collision.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

// Len returns the Euclidean length of v.
func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 {
	return v.Sub(o).Len()
}

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool {
	return v == Vec3{}
}

// Tile returns the tile containing v.
func (v Vec3) Tile() types.Tile {
	return types.Tile{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}

// At returns the position of the origin corner of t.
func At(t types.Tile) Vec3 {
	return Vec3{X: float64(t.X), Y: float64(t.Y)}
}

// Heading returns the unit vector for d.
func Heading(d types.Direction) Vec3 {
	dx, dy := grid.Vector(d)
	return Vec3{X: float64(dx), Y: float64(dy)}
}
