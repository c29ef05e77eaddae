// Package state holds the flat game variable store and the deterministic
// random source shared by conditions and actions.
package state

import (
	"sort"
	"strconv"
)

// State is the mutable, serializable game state that is not owned by the
// world: script variables and elapsed game time.
type State struct {
	Variables map[string]string
	Time      float64 // seconds of game time since the session began
	Frame     int64
}

// New creates an empty state.
func New() *State {
	return &State{Variables: map[string]string{}}
}

// Get returns a variable. Unset variables return ("", false).
func (s *State) Get(key string) (string, bool) {
	v, ok := s.Variables[key]
	return v, ok
}

// Set assigns a variable.
func (s *State) Set(key, value string) {
	s.Variables[key] = value
}

// Clear removes a variable.
func (s *State) Clear(key string) {
	delete(s.Variables, key)
}

// Number returns a variable parsed as a float. Unset or non-numeric
// variables report false.
func (s *State) Number(key string) (float64, bool) {
	v, ok := s.Variables[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Keys returns the variable names in sorted order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.Variables))
	for k := range s.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Advance moves game time forward by dt seconds and counts a frame.
func (s *State) Advance(dt float64) {
	s.Time += dt
	s.Frame++
}
