// Package conditions provides the built-in event conditions.
package conditions

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/types"
)

// Register adds every built-in condition to c.
func Register(c *events.Catalog) {
	c.RegisterCondition("true", events.ConditionFunc(always))
	c.RegisterCondition("variable_set", events.ConditionFunc(variableSet))
	c.RegisterCondition("variable_is", events.ConditionFunc(variableIs))
	c.RegisterCondition("char_exists", events.ConditionFunc(charExists))
	c.RegisterCondition("char_at", events.ConditionFunc(charAt))
	c.RegisterCondition("char_moving", events.ConditionFunc(charMoving))
	c.RegisterCondition("char_moved", events.ConditionFunc(charMoved))
	c.RegisterCondition("player_moved", events.ConditionFunc(playerMoved))
	c.RegisterCondition("char_facing", events.ConditionFunc(charFacing))
	c.RegisterCondition("char_facing_tile", events.ConditionFunc(charFacingTile))
	c.RegisterCondition("player_facing_tile", events.ConditionFunc(playerFacingTile))
	c.RegisterCondition("to_talk", events.ConditionFunc(toTalk))
}

func always(*session.Session, types.MapCondition) bool { return true }

// param returns parameter i, or "" when absent.
func param(c types.MapCondition, i int) string {
	if i < len(c.Parameters) {
		return c.Parameters[i]
	}
	return ""
}

// variableSet: variable_set <name>[,value]
func variableSet(s *session.Session, c types.MapCondition) bool {
	v, ok := s.State.Get(param(c, 0))
	if !ok {
		return false
	}
	if len(c.Parameters) > 1 {
		return v == c.Parameters[1]
	}
	return true
}

// variableIs: variable_is <a>,<op>,<b> where each operand is a number or
// the name of a numeric variable.
func variableIs(s *session.Session, c types.MapCondition) bool {
	a, err := numberOrVariable(s, param(c, 0))
	if err != nil {
		s.Log.Warn("variable_is operand", zap.Error(err))
		return false
	}
	b, err := numberOrVariable(s, param(c, 2))
	if err != nil {
		s.Log.Warn("variable_is operand", zap.Error(err))
		return false
	}

	switch op := param(c, 1); op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	default:
		s.Log.Warn("variable_is: invalid operation", zap.String("op", op))
		return false
	}
}

// numberOrVariable parses value as a number, or reads the numeric variable
// it names.
func numberOrVariable(s *session.Session, value string) (float64, error) {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f, nil
	}
	if f, ok := s.State.Number(value); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%q is neither a number nor a numeric variable", value)
}
