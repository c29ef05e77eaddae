// Package actions provides the built-in event actions.
package actions

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/session"
)

// Register adds every built-in action to c.
func Register(c *events.Catalog) {
	c.RegisterAction("set_variable", newSetVariable)
	c.RegisterAction("clear_variable", newClearVariable)
	c.RegisterAction("variable_math", newVariableMath)
	c.RegisterAction("print", newPrint)
	c.RegisterAction("say", newSay)
	c.RegisterAction("wait", newWait)

	c.RegisterAction("teleport", newTeleport)
	c.RegisterAction("change_map", newChangeMap)
	c.RegisterAction("create_npc", newCreateNPC)
	c.RegisterAction("remove_npc", newRemoveNPC)

	c.RegisterAction("char_face", newCharFace)
	c.RegisterAction("char_move", newCharMove)
	c.RegisterAction("char_pathfind", newCharPathfind)
	c.RegisterAction("char_stop", newCharStop)
	c.RegisterAction("char_wander", newCharWander)
	c.RegisterAction("char_speed", newCharSpeed)
}

// set_variable <name>:<value>[,<name>:<value>...]
type setVariable struct {
	events.Base
	pairs [][2]string
}

func newSetVariable(params []string) (events.Action, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("set_variable needs name:value: %w", events.ErrBadParams)
	}
	a := &setVariable{}
	for _, p := range params {
		name, value, ok := strings.Cut(p, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("set_variable %q: want name:value: %w", p, events.ErrBadParams)
		}
		a.pairs = append(a.pairs, [2]string{name, value})
	}
	return a, nil
}

func (a *setVariable) Start(s *session.Session) {
	for _, kv := range a.pairs {
		s.State.Set(kv[0], kv[1])
	}
}

// clear_variable <name>[,<name>...]
type clearVariable struct {
	events.Base
	names []string
}

func newClearVariable(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.String(0)
	return &clearVariable{names: params}, p.Err()
}

func (a *clearVariable) Start(s *session.Session) {
	for _, n := range a.names {
		s.State.Clear(n)
	}
}

// variable_math <var>,<op>,<operand>[,<result>]
type variableMath struct {
	events.Base
	variable, op, operand, result string
}

func newVariableMath(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(4)
	a := &variableMath{
		variable: p.String(0),
		op:       p.String(1),
		operand:  p.String(2),
	}
	a.result = p.OptString(3, a.variable)
	if err := p.Err(); err != nil {
		return nil, err
	}
	switch a.op {
	case "+", "-", "*", "/", "=":
		return a, nil
	}
	return nil, fmt.Errorf("variable_math: invalid operation %q: %w", a.op, events.ErrBadParams)
}

func (a *variableMath) Start(s *session.Session) {
	y, err := numberOrVariable(s, a.operand)
	if err != nil {
		s.Log.Warn("variable_math", zap.Error(err))
		return
	}
	var x float64
	if a.op != "=" {
		if x, err = numberOrVariable(s, a.variable); err != nil {
			s.Log.Warn("variable_math", zap.Error(err))
			return
		}
	}

	var out float64
	switch a.op {
	case "+":
		out = x + y
	case "-":
		out = x - y
	case "*":
		out = x * y
	case "/":
		if y == 0 {
			s.Log.Warn("variable_math: division by zero", zap.String("variable", a.variable))
			return
		}
		out = x / y
	case "=":
		out = y
	}
	s.State.Set(a.result, formatNumber(out))
}

func numberOrVariable(s *session.Session, v string) (float64, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f, nil
	}
	if f, ok := s.State.Number(v); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%q is not numeric", v)
}

// formatNumber renders whole numbers without a fraction.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// print [<variable>]: shows one variable, or all of them.
type printAction struct {
	events.Base
	name string
}

func newPrint(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(1)
	return &printAction{name: p.OptString(0, "")}, p.Err()
}

func (a *printAction) Start(s *session.Session) {
	if a.name != "" {
		v, ok := s.State.Get(a.name)
		if !ok {
			v = "(unset)"
		}
		s.Say(fmt.Sprintf("%s: %s", a.name, v))
		return
	}
	for _, k := range s.State.Keys() {
		v, _ := s.State.Get(k)
		s.Say(fmt.Sprintf("%s: %s", k, v))
	}
}

// say <text>. Unescaped commas split the text; they are joined back.
type say struct {
	events.Base
	text string
}

func newSay(params []string) (events.Action, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("say needs text: %w", events.ErrBadParams)
	}
	return &say{text: strings.Join(params, ", ")}, nil
}

func (a *say) Start(s *session.Session) {
	s.Say(a.text)
}

// wait <seconds>: blocks the event for game time.
type wait struct {
	events.Base
	seconds float64
	until   float64
}

func newWait(params []string) (events.Action, error) {
	p := events.NewParams(params)
	p.Max(1)
	secs := p.Float(0)
	if p.Err() == nil && secs < 0 {
		return nil, fmt.Errorf("wait: negative duration: %w", events.ErrBadParams)
	}
	return &wait{seconds: secs}, p.Err()
}

func (a *wait) Start(s *session.Session) {
	a.until = s.State.Time + a.seconds
}

func (a *wait) Update(s *session.Session) {
	if s.State.Time >= a.until {
		a.Stop()
	}
}
