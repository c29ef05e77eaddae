// Package resolve maps names typed at the command line to actors in the
// world.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

// AmbiguityError indicates multiple actors matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no actor matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Name)
}

// Actor resolves name to an actor on the current map. The actor named
// exclude (usually the player) never matches.
func Actor(w *world.World, name, exclude string) (*world.Actor, error) {
	// 1. Exact slug match.
	if a, ok := w.Actor(name); ok && a.Slug != exclude {
		return a, nil
	}

	// 2. Loose match by slug words.
	nameLower := strings.ToLower(strings.TrimSpace(name))
	var matches []*world.Actor
	for _, a := range w.Actors() {
		if a.Slug == exclude {
			continue
		}
		if matchesName(a.Slug, nameLower) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		slugs := make([]string, len(matches))
		for i, a := range matches {
			slugs[i] = a.Slug
		}
		sort.Strings(slugs)
		return nil, &AmbiguityError{Name: name, Candidates: slugs}
	}
}

// matchesName checks a slug against the query case-insensitively: the
// whole slug, the slug with spaces for underscores, or any single word.
// "maple" matches "professor_maple"; "old man" matches "old_man".
func matchesName(slug, nameLower string) bool {
	slugLower := strings.ToLower(slug)
	if slugLower == nameLower {
		return true
	}
	if strings.ReplaceAll(nameLower, " ", "_") == slugLower {
		return true
	}
	words := strings.FieldsFunc(slugLower, func(r rune) bool { return r == '_' || r == '-' })
	for _, word := range words {
		if word == nameLower {
			return true
		}
	}
	return false
}

// Approach returns the tiles beside target that from can stand on to face
// it, nearest first. Ties follow grid.ExitOrder.
func Approach(from, target types.Tile) []types.Tile {
	tiles := make([]types.Tile, 0, len(grid.ExitOrder))
	for _, d := range grid.ExitOrder {
		tiles = append(tiles, grid.Neighbor(target, d))
	}
	sort.SliceStable(tiles, func(i, j int) bool {
		return distance(from, tiles[i]) < distance(from, tiles[j])
	})
	return tiles
}

func distance(a, b types.Tile) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
