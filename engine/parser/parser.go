// Package parser converts command strings into Intent structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strings"

	"github.com/nathoo/tilecore/engine/script"
	"github.com/nathoo/tilecore/types"
)

// Direction words accepted anywhere a direction is expected.
var directionExpansions = map[string]types.Direction{
	"u":     types.Up,
	"d":     types.Down,
	"l":     types.Left,
	"r":     types.Right,
	"n":     types.Up,
	"s":     types.Down,
	"e":     types.Right,
	"w":     types.Left,
	"up":    types.Up,
	"down":  types.Down,
	"left":  types.Left,
	"right": types.Right,
	"north": types.Up,
	"south": types.Down,
	"east":  types.Right,
	"west":  types.Left,
}

var verbAliases = map[string]string{
	// Movement
	"move": "walk",
	"step": "walk",
	"run":  "walk",
	"go":   "goto",
	"path": "goto",
	"turn": "face",

	// Interaction
	"talk":     "interact",
	"use":      "interact",
	"examine":  "interact",
	"x":        "interact",
	"activate": "interact",

	// Time
	"z":    "wait",
	"tick": "wait",

	// Queries
	"look":      "where",
	"pos":       "where",
	"variables": "vars",
	"var":       "vars",
	"running":   "events",
	"exec":      "do",
}

// Parse converts a raw command string into an Intent.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	head, tail, _ := strings.Cut(input, " ")
	verb := strings.ToLower(head)
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}

	// Direction shortcut: bare "n", "left", etc. → walk <direction>
	if d, ok := directionExpansions[verb]; ok && strings.TrimSpace(tail) == "" {
		return types.Intent{Verb: "walk", Args: []string{string(d)}}
	}

	// Actions keep their case: slugs and text are case sensitive.
	if verb == "do" {
		return parseDo(tail)
	}

	args := strings.Fields(strings.ToLower(tail))
	switch verb {
	case "walk", "face":
		if len(args) > 0 {
			if d, ok := directionExpansions[args[0]]; ok {
				args[0] = string(d)
			}
		}
	case "goto":
		args = stripSeparators(args)
	}
	if len(args) == 0 {
		args = nil
	}
	return types.Intent{Verb: verb, Args: args}
}

// parseDo splits "do <action> <args>" with the map action grammar.
func parseDo(text string) types.Intent {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Intent{Verb: "do"}
	}
	typ, args := script.ParseAction(text)
	return types.Intent{Verb: "do", Args: append([]string{typ}, args...)}
}

// stripSeparators turns "3,4" or "3, 4" or "to 3 4" into coordinate words.
func stripSeparators(words []string) []string {
	var out []string
	for _, w := range words {
		if w == "to" {
			continue
		}
		for _, part := range strings.Split(w, ",") {
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
