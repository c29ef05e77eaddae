package tilemap

import (
	"errors"

	"github.com/zyedidia/generic/mapset"
	"github.com/zyedidia/generic/queue"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

// ErrNoPath is returned when the destination cannot be reached.
var ErrNoPath = errors.New("no path")

type pathNode struct {
	tile   types.Tile
	parent *pathNode
	depth  int
	facing types.Direction
}

// steps returns the tiles from the node after the root up to n.
func (n *pathNode) steps() []types.Tile {
	out := make([]types.Tile, n.depth)
	for cur := n; cur.parent != nil; cur = cur.parent {
		out[cur.depth-1] = cur.tile
	}
	return out
}

// Pathfind runs a breadth-first search from start to dest over the snapshot
// g. The snapshot is not refreshed during the search. The returned path
// excludes start and ends with dest; start == dest yields an empty path.
func (m *Map) Pathfind(g Grid, start, dest types.Tile, facing types.Direction) ([]types.Tile, error) {
	known := mapset.New[types.Tile]()
	known.Put(start)

	q := queue.New[*pathNode]()
	q.Enqueue(&pathNode{tile: start, facing: facing})
	for !q.Empty() {
		n := q.Dequeue()
		if n.tile == dest {
			return n.steps(), nil
		}
		for _, next := range m.Exits(g, n.tile, n.facing, known) {
			known.Put(next)
			q.Enqueue(&pathNode{
				tile:   next,
				parent: n,
				depth:  n.depth + 1,
				facing: grid.DirectionTo(n.tile, next),
			})
		}
	}
	return nil, ErrNoPath
}
