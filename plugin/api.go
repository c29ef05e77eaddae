package plugin

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/types"
)

// errNoSession is raised when an API function runs outside a verb call,
// for example at plugin load time.
var errNoSession = errors.New("no running session")

// registerAPI registers the verb constructors and the game API as globals.
func (h *Host) registerAPI() {
	h.registerConstructors()
	h.registerGameAPI()
}

func (h *Host) registerConstructors() {
	L := h.L

	// Condition("name", function(params, zone) ... end)
	L.SetGlobal("Condition", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		h.catalog.RegisterCondition(name, events.ConditionFunc(func(s *session.Session, c types.MapCondition) bool {
			return h.testCondition(s, name, fn, c)
		}))
		h.verbs = append(h.verbs, name)
		return 0
	}))

	// Action("name", function(params, st) ... end)
	L.SetGlobal("Action", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		h.catalog.RegisterAction(name, func(params []string) (events.Action, error) {
			return &luaAction{host: h, name: name, fn: fn, params: params}, nil
		})
		h.verbs = append(h.verbs, name)
		return 0
	}))
}

func (h *Host) registerGameAPI() {
	L := h.L

	// get_var("name") -> string or nil
	L.SetGlobal("get_var", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		s := h.mustSession(L)
		if v, ok := s.State.Get(key); ok {
			L.Push(lua.LString(v))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))

	// set_var("name", value); a nil value clears the variable.
	L.SetGlobal("set_var", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		s := h.mustSession(L)
		v := L.Get(2)
		if v == lua.LNil {
			s.State.Clear(key)
		} else {
			s.State.Set(key, lua.LVAsString(v))
		}
		return 0
	}))

	// actor_tile("slug") -> x, y or nil
	L.SetGlobal("actor_tile", L.NewFunction(func(L *lua.LState) int {
		slug := L.CheckString(1)
		s := h.mustSession(L)
		a, ok := s.Actor(slug)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		t := a.Tile()
		L.Push(lua.LNumber(t.X))
		L.Push(lua.LNumber(t.Y))
		return 2
	}))

	// say("text")
	L.SetGlobal("say", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		h.mustSession(L).Say(text)
		return 0
	}))

	// random(n) -> integer in [0, n) from the session RNG
	L.SetGlobal("random", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "must be positive")
		}
		L.Push(lua.LNumber(h.mustSession(L).RNG.Intn(n)))
		return 1
	}))

	// log("message")
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		h.log.Info("plugin", zap.String("message", L.CheckString(1)))
		return 0
	}))
}

func (h *Host) mustSession(L *lua.LState) *session.Session {
	if h.session == nil {
		L.RaiseError("%v", errNoSession)
	}
	return h.session
}

// testCondition runs a Lua condition. A script error counts as false.
func (h *Host) testCondition(s *session.Session, name string, fn *lua.LFunction, c types.MapCondition) bool {
	zone := h.L.NewTable()
	zone.RawSetString("x", lua.LNumber(c.X))
	zone.RawSetString("y", lua.LNumber(c.Y))
	zone.RawSetString("width", lua.LNumber(c.Width))
	zone.RawSetString("height", lua.LNumber(c.Height))

	ret, err := h.call(s, fn, h.stringList(c.Parameters), zone)
	if err != nil {
		h.log.Warn("plugin condition failed", zap.String("condition", name), zap.Error(err))
		return false
	}
	return lua.LVAsBool(ret)
}

// luaAction calls its function once per frame until it reports done.
type luaAction struct {
	events.Base
	host   *Host
	name   string
	fn     *lua.LFunction
	params []string
	st     *lua.LTable
}

func (a *luaAction) Start(s *session.Session) {
	a.st = a.host.L.NewTable()
	a.step(s)
}

func (a *luaAction) Update(s *session.Session) {
	a.step(s)
}

func (a *luaAction) step(s *session.Session) {
	if a.Done() {
		return
	}
	ret, err := a.host.call(s, a.fn, a.host.stringList(a.params), a.st)
	if err != nil {
		a.host.log.Warn("plugin action failed", zap.String("action", a.name), zap.Error(err))
		a.Stop()
		return
	}
	// Only an explicit false keeps the action running.
	if ret != lua.LFalse {
		a.Stop()
	}
}

func (a *luaAction) String() string {
	return fmt.Sprintf("%s %v", a.name, a.params)
}
