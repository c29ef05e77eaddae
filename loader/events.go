package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"github.com/nathoo/tilecore/engine/script"
	"github.com/nathoo/tilecore/types"
)

// eventScripts turns the cond*, act* and behav* properties of an event
// object into conditions and actions. Keys are visited in natural order so
// act2 runs before act10; other keys are ignored.
func eventScripts(props map[string]string, zone types.EventObject) ([]types.MapCondition, []types.MapAction, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))

	var (
		conds      []types.MapCondition
		acts       []types.MapAction
		behavConds []types.MapCondition
		behavActs  []types.MapAction
	)
	for _, key := range keys {
		value := props[key]
		switch {
		case strings.HasPrefix(key, "cond"):
			c, err := parseCondition(value, zone)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", key, err)
			}
			c.Name = key
			conds = append(conds, c)
		case strings.HasPrefix(key, "act"):
			typ, args := script.ParseAction(value)
			acts = append(acts, types.MapAction{Type: typ, Parameters: args, Name: key})
		case strings.HasPrefix(key, "behav"):
			c, a, err := expandBehav(value, key, zone)
			if err != nil {
				return nil, nil, err
			}
			behavConds = append(behavConds, c)
			behavActs = append(behavActs, a)
		}
	}
	// Behaviours lead: their condition and action come first.
	return append(behavConds, conds...), append(behavActs, acts...), nil
}

func parseCondition(text string, zone types.EventObject) (types.MapCondition, error) {
	op, typ, args, err := script.ParseCondition(text)
	if err != nil {
		return types.MapCondition{}, err
	}
	if op != "is" && op != "not" {
		return types.MapCondition{}, fmt.Errorf("condition %q: operator must be \"is\" or \"not\"", text)
	}
	return types.MapCondition{
		Type:       typ,
		Parameters: args,
		X:          zone.X,
		Y:          zone.Y,
		Width:      zone.W,
		Height:     zone.H,
		Operator:   op,
	}, nil
}

// expandBehav expands a behaviour shorthand. "talk <npc>" means: when the
// player talks to npc, have npc face the player.
func expandBehav(text, key string, zone types.EventObject) (types.MapCondition, types.MapAction, error) {
	typ, args := script.ParseBehav(text)
	if typ != "talk" || len(args) == 0 || args[0] == "" {
		return types.MapCondition{}, types.MapAction{}, fmt.Errorf("%s: unknown behaviour %q", key, text)
	}
	c := types.MapCondition{
		Type:       "to_talk",
		Parameters: args,
		X:          zone.X,
		Y:          zone.Y,
		Width:      zone.W,
		Height:     zone.H,
		Operator:   "is",
		Name:       key,
	}
	a := types.MapAction{Type: "char_face", Parameters: []string{args[0], "player"}, Name: key}
	return c, a, nil
}

// newEvent assembles an event object. Interact objects additionally
// require the player to face the zone.
func newEvent(id, name, typ string, x, y, w, h int, props map[string]string) (types.EventObject, error) {
	ev := types.EventObject{ID: id, Name: name, Type: typ, X: x, Y: y, W: w, H: h}
	conds, acts, err := eventScripts(props, ev)
	if err != nil {
		return types.EventObject{}, fmt.Errorf("event %q: %w", name, err)
	}
	if typ == "interact" {
		conds = append(conds, types.MapCondition{
			Type: "player_facing_tile", X: x, Y: y, Width: w, Height: h, Operator: "is",
		})
	}
	ev.Conditions = conds
	ev.Actions = acts
	return ev, nil
}
