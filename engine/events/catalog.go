// Package events runs map events: it evaluates condition lists every
// frame, starts events whose conditions hold, and steps their action
// sequences until they finish.
package events

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/types"
)

var (
	// ErrUnknownAction is returned for an action type with no registration.
	ErrUnknownAction = errors.New("unknown action")
	// ErrUnknownCondition is returned for a condition type with no registration.
	ErrUnknownCondition = errors.New("unknown condition")
	// ErrBadParams is returned when action parameters do not fit the action.
	ErrBadParams = errors.New("bad parameters")
)

// Condition tests one map condition. The operator is applied by the caller.
type Condition interface {
	Test(s *session.Session, c types.MapCondition) bool
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(s *session.Session, c types.MapCondition) bool

func (f ConditionFunc) Test(s *session.Session, c types.MapCondition) bool { return f(s, c) }

// Action is a polled task. Start is called once, then Update every frame
// until Done reports true, then Cleanup once.
type Action interface {
	Start(s *session.Session)
	Update(s *session.Session)
	Done() bool
	Cleanup(s *session.Session)
}

// Bound is implemented by actions that drive an actor. The engine stops a
// bound action whose actor no longer exists.
type Bound interface {
	Subject() string
}

// ActionFactory builds an action from its raw parameters. Parameter shape
// errors are reported at construction.
type ActionFactory func(params []string) (Action, error)

// Base supplies Done, Stop, a no-op Cleanup and an Update that stops. An
// action that only implements Start finishes in the frame it starts.
type Base struct {
	done bool
}

func (b *Base) Done() bool { return b.done }
func (b *Base) Stop() { b.done = true }
func (b *Base) Update(*session.Session) { b.Stop() }
func (b *Base) Cleanup(*session.Session) {}

// Catalog maps verb names to handlers.
type Catalog struct {
	conditions map[string]Condition
	actions    map[string]ActionFactory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		conditions: make(map[string]Condition),
		actions:    make(map[string]ActionFactory),
	}
}

// RegisterCondition adds or replaces a condition.
func (c *Catalog) RegisterCondition(name string, cond Condition) {
	c.conditions[name] = cond
}

// RegisterAction adds or replaces an action.
func (c *Catalog) RegisterAction(name string, f ActionFactory) {
	c.actions[name] = f
}

// Condition looks a condition up by name.
func (c *Catalog) Condition(name string) (Condition, bool) {
	cond, ok := c.conditions[name]
	return cond, ok
}

// HasAction reports whether name is registered as an action.
func (c *Catalog) HasAction(name string) bool {
	_, ok := c.actions[name]
	return ok
}

// NewAction constructs the action described by a.
func (c *Catalog) NewAction(a types.MapAction) (Action, error) {
	f, ok := c.actions[a.Type]
	if !ok {
		return nil, fmt.Errorf("%s: %w", a.Type, ErrUnknownAction)
	}
	act, err := f(a.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Type, err)
	}
	return act, nil
}

// ConditionNames returns the registered condition names, sorted.
func (c *Catalog) ConditionNames() []string {
	return sortedKeys(c.conditions)
}

// ActionNames returns the registered action names, sorted.
func (c *Catalog) ActionNames() []string {
	return sortedKeys(c.actions)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
