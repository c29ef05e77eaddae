package events

import "github.com/nathoo/tilecore/types"

// RunningEvent is the live execution record of a started event.
type RunningEvent struct {
	Event       types.EventObject
	ActionIndex int
	Context     map[string]any

	current     Action
	currentType string
}

// NewRunningEvent returns a record positioned at the first action.
func NewRunningEvent(ev types.EventObject) *RunningEvent {
	return &RunningEvent{Event: ev, Context: make(map[string]any)}
}

// NextAction returns the action at the current index, or false when the
// sequence is exhausted.
func (r *RunningEvent) NextAction() (types.MapAction, bool) {
	if r.ActionIndex >= len(r.Event.Actions) {
		return types.MapAction{}, false
	}
	return r.Event.Actions[r.ActionIndex], true
}

// Advance moves to the next action.
func (r *RunningEvent) Advance() {
	r.ActionIndex++
}

// Current returns the executing action's type, or "" between actions.
func (r *RunningEvent) Current() string {
	if r.current == nil {
		return ""
	}
	return r.currentType
}
