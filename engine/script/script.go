// Package script parses the one-line statements embedded in map objects:
//
//	act1  = "set_variable door:open"
//	cond1 = "is variable_set door:open"
//	behav = "talk npc_maple"
//
// Arguments are comma separated; a literal comma is written as \,.
package script

import (
	"fmt"
	"strings"
)

// SplitEscaped splits s on commas that are not preceded by a backslash,
// unescapes \, and trims each token. An empty string yields one empty token.
func SplitEscaped(s string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == ',' {
			cur.WriteByte(',')
			i++
			continue
		}
		if c == ',' {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(out, strings.TrimSpace(cur.String()))
}

// ParseAction splits an action statement into its type and arguments. The
// type ends at the first space; without one there are no arguments.
func ParseAction(text string) (typ string, args []string) {
	typ, rest, found := strings.Cut(text, " ")
	if !found {
		return typ, nil
	}
	return typ, SplitEscaped(rest)
}

// ParseBehav parses a behaviour shorthand. It uses the action grammar.
func ParseBehav(text string) (typ string, args []string) {
	return ParseAction(text)
}

// ParseCondition splits a condition statement into operator, type and
// arguments. At least an operator and a type are required.
func ParseCondition(text string) (op, typ string, args []string, err error) {
	op, rest, found := strings.Cut(text, " ")
	if !found {
		return "", "", nil, fmt.Errorf("condition %q: expected \"<operator> <type> [args]\"", text)
	}
	typ, rest, found = strings.Cut(rest, " ")
	if !found {
		return op, typ, nil, nil
	}
	return op, typ, SplitEscaped(rest), nil
}
