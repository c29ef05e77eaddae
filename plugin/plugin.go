// Package plugin lets Lua scripts add condition and action verbs to an
// events.Catalog.
//
// A plugin file runs once in a sandboxed VM and registers verbs:
//
//	Condition("has_coins", function(params, zone)
//	  return tonumber(get_var("coins") or "0") >= tonumber(params[1])
//	end)
//
//	Action("count_down", function(params, st)
//	  st.n = (st.n or tonumber(params[1])) - 1
//	  return st.n <= 0
//	end)
//
// Conditions return a boolean. Actions are called once per frame with their
// parameters and a per-instance state table, and finish when they return
// true or nothing.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/observe"
)

// Host owns the Lua VM that backs every plugin verb. The VM is not safe for
// concurrent use; verbs run on the frame loop goroutine only.
type Host struct {
	L       *lua.LState
	catalog *events.Catalog
	log     *zap.Logger

	// session is set for the duration of each call into Lua.
	session *session.Session

	verbs []string
}

// New creates a sandboxed VM that registers verbs into catalog.
func New(catalog *events.Catalog, log *zap.Logger) *Host {
	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)

	h := &Host{L: L, catalog: catalog, log: observe.OrNop(log)}
	h.registerAPI()
	return h
}

// Close releases the VM. Verbs registered by h must not run afterwards.
func (h *Host) Close() {
	h.L.Close()
}

// Verbs lists the verbs added so far, sorted.
func (h *Host) Verbs() []string {
	out := append([]string(nil), h.verbs...)
	sort.Strings(out)
	return out
}

// LoadFile runs one plugin file.
func (h *Host) LoadFile(path string) error {
	if err := h.L.DoFile(path); err != nil {
		return fmt.Errorf("executing %s: %w", filepath.Base(path), err)
	}
	h.log.Info("plugin loaded", zap.String("path", path))
	return nil
}

// LoadString runs plugin source held in memory; name labels errors.
func (h *Host) LoadString(name, src string) error {
	if err := h.L.DoString(src); err != nil {
		return fmt.Errorf("executing %s: %w", name, err)
	}
	return nil
}

// LoadDir runs every .lua file in dir in name order.
func (h *Host) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading plugin directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		if err := h.LoadFile(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Load creates a host and runs each path, which may be a file or a
// directory of .lua files.
func Load(paths []string, catalog *events.Catalog, log *zap.Logger) (*Host, error) {
	h := New(catalog, log)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("plugin %s: %w", p, err)
		}
		if info.IsDir() {
			err = h.LoadDir(p)
		} else {
			err = h.LoadFile(p)
		}
		if err != nil {
			h.Close()
			return nil, err
		}
	}
	return h, nil
}

// call invokes fn with args while s is visible to the API functions and
// returns its first result.
func (h *Host) call(s *session.Session, fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	prev := h.session
	h.session = s
	defer func() { h.session = prev }()

	if err := h.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := h.L.Get(-1)
	h.L.Pop(1)
	return ret, nil
}

func (h *Host) stringList(items []string) *lua.LTable {
	tbl := h.L.NewTable()
	for _, s := range items {
		tbl.Append(lua.LString(s))
	}
	return tbl
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the VM or break determinism.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Randomness goes through the session RNG (see random()).
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
		tbl.RawSetString("random", lua.LNil)
	}
}
