// Package save implements JSON serialization and deserialization of a
// session: the current map, script variables, actors and the RNG position.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/state"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

// FormatVersion is bumped whenever SaveData changes incompatibly.
const FormatVersion = 1

// ErrVersion is returned when loading a save written by another format.
var ErrVersion = errors.New("unsupported save version")

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version     int               `json:"version"`
	Game        string            `json:"game"`
	Map         string            `json:"map"`
	Time        float64           `json:"time"`
	Frame       int64             `json:"frame"`
	Player      string            `json:"player"`
	Variables   map[string]string `json:"variables"`
	Actors      []ActorState      `json:"actors"`
	RNGSeed     int64             `json:"rng_seed"`
	RNGPosition int64             `json:"rng_position"`
}

// ActorState is one character's saved placement. Movement in progress is
// not saved; actors resume standing on their tile.
type ActorState struct {
	Slug       string          `json:"slug"`
	X          int             `json:"x"`
	Y          int             `json:"y"`
	Facing     types.Direction `json:"facing"`
	MoveRate   float64         `json:"move_rate"`
	Persistent bool            `json:"persistent,omitempty"`
}

// Save serializes the session to JSON bytes.
func Save(s *session.Session, game string) ([]byte, error) {
	m := s.Map()
	if m == nil {
		return nil, errors.New("save: no map loaded")
	}
	data := SaveData{
		Version:     FormatVersion,
		Game:        game,
		Map:         m.Name,
		Time:        s.State.Time,
		Frame:       s.State.Frame,
		Player:      s.PlayerSlug,
		Variables:   s.State.Variables,
		RNGSeed:     s.RNG.Seed(),
		RNGPosition: s.RNG.Position(),
	}
	for _, a := range s.World.Actors() {
		t := a.Tile()
		data.Actors = append(data.Actors, ActorState{
			Slug:       a.Slug,
			X:          t.X,
			Y:          t.Y,
			Facing:     a.Facing(),
			MoveRate:   a.MoveRate,
			Persistent: a.Persistent,
		})
	}
	sort.Slice(data.Actors, func(i, j int) bool { return data.Actors[i].Slug < data.Actors[j].Slug })
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, sd.Version)
	}
	if sd.Map == "" {
		return nil, errors.New("save: missing map name")
	}
	// Ensure maps are never nil after load.
	if sd.Variables == nil {
		sd.Variables = map[string]string{}
	}
	for i, a := range sd.Actors {
		if a.Slug == "" {
			return nil, fmt.Errorf("save: actor %d has no slug", i)
		}
		if a.Facing != "" && !grid.Valid(a.Facing) {
			return nil, fmt.Errorf("save: actor %s: invalid facing %q", a.Slug, a.Facing)
		}
	}
	return &sd, nil
}

// Apply restores sd onto s. The saved map is reloaded through the
// session's map loader, then every saved actor is placed and actors the
// save does not know are removed.
func Apply(ctx context.Context, s *session.Session, sd *SaveData) error {
	// 1. Reload the map; this drops events, tasks and transient actors.
	if err := s.ChangeMap(ctx, sd.Map); err != nil {
		return fmt.Errorf("restoring save: %w", err)
	}

	// 2. Variables, time and randomness.
	s.State.Variables = sd.Variables
	s.State.Time = sd.Time
	s.State.Frame = sd.Frame
	s.RNG = state.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	if sd.Player != "" {
		s.PlayerSlug = sd.Player
	}

	// 3. Actors.
	saved := make(map[string]bool, len(sd.Actors))
	for _, as := range sd.Actors {
		saved[as.Slug] = true
	}
	for _, a := range s.World.Actors() {
		if !saved[a.Slug] {
			s.World.RemoveActor(a.Slug)
		}
	}
	// Actors that survived the reload move first so their old tiles are
	// free for the ones spawned after them.
	for _, pass := range []bool{true, false} {
		for _, as := range sd.Actors {
			if _, ok := s.World.Actor(as.Slug); ok != pass {
				continue
			}
			if err := placeActor(s.World, as); err != nil {
				return fmt.Errorf("restoring save: %w", err)
			}
		}
	}
	return nil
}

func placeActor(w *world.World, as ActorState) error {
	t := types.Tile{X: as.X, Y: as.Y}
	facing := as.Facing
	if facing == "" {
		facing = types.Down
	}
	a, ok := w.Actor(as.Slug)
	if !ok {
		var err error
		if a, err = w.Spawn(as.Slug, t, facing); err != nil {
			return err
		}
	} else {
		a.Teleport(t)
		a.SetFacing(facing)
	}
	a.Persistent = as.Persistent
	if as.MoveRate > 0 {
		a.MoveRate = as.MoveRate
	}
	return nil
}
