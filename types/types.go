// Package types defines the shared data structures for the tilecore engine.
// It holds type definitions only, with no logic.
package types

// Direction is one of the four cardinal movement directions.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Orientation classifies an axis-aligned line segment.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Tile is an integer grid coordinate. All collision and trigger logic is
// expressed in tiles; pixel values are tile × tile size.
type Tile struct {
	X int
	Y int
}

// RegionProperties holds the movement rules attached to a single tile.
// A nil *RegionProperties in a collision map means "hard blocked".
type RegionProperties struct {
	EnterFrom []Direction // sides an actor may enter from; empty = unrestricted
	ExitFrom  []Direction // directions an actor may leave toward
	Endure    []Direction // forced continue directions (conveyor tiles)
	Entity    string      // occupying actor slug, set only in occupancy snapshots
	Key       string      // semantic label, e.g. "slide" or "door"
}

// CollisionLine marks that movement from Tile toward Direction is blocked.
type CollisionLine struct {
	Tile      Tile
	Direction Direction
}

// MapCondition describes a condition to test. It carries the trigger zone
// of the event it belongs to.
type MapCondition struct {
	Type       string
	Parameters []string
	X          int
	Y          int
	Width      int
	Height     int
	Operator   string // "is" or "not"
	Name       string // source property name, e.g. "cond3"
}

// MapAction describes an action to run.
type MapAction struct {
	Type       string
	Parameters []string
	Name       string
}

// EventObject is a trigger zone on a map plus its scripts. Immutable after load.
type EventObject struct {
	ID         string
	Name       string
	Type       string // "event", "init" or "interact"
	X          int
	Y          int
	W          int
	H          int
	Conditions []MapCondition
	Actions    []MapAction
}

// Intent is the parsed representation of a player command.
type Intent struct {
	Verb string
	Args []string
}

// Result is the output of a single engine update or command.
type Result struct {
	Output   []string
	Started  []string // event ids started this step
	Finished []string // event ids finished this step
}
