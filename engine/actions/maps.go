package actions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

// teleport <map>,<x>,<y>. Loads map when it is not current, then places
// the player.
type teleport struct {
	events.Base
	mapName string
	dest    types.Tile
}

func newTeleport(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(3)
	a := &teleport{mapName: p.String(0), dest: types.Tile{X: p.Int(1), Y: p.Int(2)}}
	return a, p.Err()
}

func (a *teleport) Start(s *session.Session) {
	if m := s.Map(); m == nil || m.Name != a.mapName {
		if err := s.ChangeMap(context.Background(), a.mapName); err != nil {
			s.Log.Error("teleport failed", zap.String("map", a.mapName), zap.Error(err))
			return
		}
	}
	if p, ok := s.Player(); ok {
		p.Teleport(a.dest)
	}
}

// change_map <map>[,x,y]. Always reloads, keeping the player's tile unless
// coordinates are given.
type changeMap struct {
	events.Base
	mapName string
	dest    *types.Tile
}

func newChangeMap(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(3)
	a := &changeMap{mapName: p.String(0)}
	if p.Len() > 1 {
		a.dest = &types.Tile{X: p.Int(1), Y: p.Int(2)}
	}
	return a, p.Err()
}

func (a *changeMap) Start(s *session.Session) {
	if err := s.ChangeMap(context.Background(), a.mapName); err != nil {
		s.Log.Error("change_map failed", zap.String("map", a.mapName), zap.Error(err))
		return
	}
	if p, ok := s.Player(); ok && a.dest != nil {
		p.Teleport(*a.dest)
	}
}

// create_npc <slug>,<x>,<y>[,facing]
type createNPC struct {
	events.Base
	slug   string
	at     types.Tile
	facing types.Direction
}

func newCreateNPC(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(4)
	a := &createNPC{
		slug: p.String(0),
		at:   types.Tile{X: p.Int(1), Y: p.Int(2)},
	}
	a.facing = types.Down
	if p.Len() > 3 && params[3] != "" {
		a.facing = p.Direction(3)
	}
	return a, p.Err()
}

func (a *createNPC) Start(s *session.Session) {
	if _, err := s.World.Spawn(a.slug, a.at, a.facing); err != nil {
		if errors.Is(err, world.ErrDuplicateActor) {
			s.Log.Debug("create_npc: already present", zap.String("npc", a.slug))
			return
		}
		s.Log.Warn("create_npc failed", zap.String("npc", a.slug), zap.Error(err))
	}
}

// remove_npc <slug>
type removeNPC struct {
	events.Base
	slug string
}

func newRemoveNPC(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(1)
	return &removeNPC{slug: p.String(0)}, p.Err()
}

func (a *removeNPC) Start(s *session.Session) {
	if a.slug == session.PlayerAlias || a.slug == s.PlayerSlug {
		s.Log.Warn("remove_npc: refusing to remove the player")
		return
	}
	if !s.World.RemoveActor(a.slug) {
		s.Log.Debug("remove_npc: not present", zap.String("npc", a.slug))
	}
}
