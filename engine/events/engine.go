package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/observe"
	"github.com/nathoo/tilecore/types"
)

// ConditionResult is one evaluated condition, operator applied.
type ConditionResult struct {
	Condition types.MapCondition
	Passed    bool
}

// PartialEvent is an event with at least one passing condition, recorded
// in debug mode for visualization.
type PartialEvent struct {
	Event   types.EventObject
	Results []ConditionResult
}

// Engine evaluates the current map's events and runs their actions. It is
// driven by one goroutine, once per frame.
type Engine struct {
	session *session.Session
	catalog *Catalog
	log     *zap.Logger
	metrics *observe.Metrics
	debug   bool

	running map[string]*RunningEvent
	order   []string // running ids in start order
	inits   []types.EventObject
	latch   map[string]bool // last condition result per standing event
	partial []PartialEvent

	started  []string
	finished []string
	scripts  int
}

// New creates an engine bound to s. The engine resets itself whenever the
// session's world changes map.
func New(s *session.Session, catalog *Catalog, log *zap.Logger, metrics *observe.Metrics) *Engine {
	e := &Engine{
		session: s,
		catalog: catalog,
		log:     observe.OrNop(log),
		metrics: observe.OrDefault(metrics),
		running: make(map[string]*RunningEvent),
		latch:   make(map[string]bool),
	}
	s.World.OnMapChange(e.Reset)
	if m := s.Map(); m != nil {
		e.Reset(m)
	}
	return e
}

// Catalog returns the verb catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// SetDebug toggles recording of partial condition results.
func (e *Engine) SetDebug(on bool) { e.debug = on }

// Reset drops all running events and edge state, and re-arms the init
// events of m.
func (e *Engine) Reset(m *tilemap.Map) {
	for _, id := range e.order {
		e.log.Debug("event aborted by map change", zap.String("event", id))
	}
	clear(e.running)
	clear(e.latch)
	e.order = nil
	e.partial = nil
	e.inits = nil
	if m != nil {
		e.inits = append(e.inits, m.Inits...)
	}
}

// Update runs one frame: pending init events, then standing events, then
// every running event.
func (e *Engine) Update(ctx context.Context) {
	m := e.session.Map()
	if m == nil {
		return
	}
	e.partial = nil

	// 1. Init events run once per map load.
	if len(e.inits) > 0 {
		var remaining []types.EventObject
		for _, ev := range e.inits {
			if e.CheckConditions(ev) {
				e.StartEvent(ctx, ev)
				continue
			}
			remaining = append(remaining, ev)
		}
		e.inits = remaining
	}

	// 2. Standing events start on a false to true transition. A transition
	// seen while the event is still running stays pending and starts it
	// again once the running instance finishes.
	for _, ev := range m.Events {
		if !e.CheckConditions(ev) {
			e.latch[ev.ID] = false
			continue
		}
		if e.latch[ev.ID] || e.IsRunning(ev.ID) {
			continue
		}
		e.latch[ev.ID] = true
		e.StartEvent(ctx, ev)
	}

	// 3. Step running events.
	e.updateRunning(ctx)
}

// ProcessInteracts evaluates the interact events with the session's
// Interacting flag set. It returns the ids of events started.
func (e *Engine) ProcessInteracts(ctx context.Context) []string {
	m := e.session.Map()
	if m == nil {
		return nil
	}
	e.session.Interacting = true
	defer func() { e.session.Interacting = false }()

	var ids []string
	for _, ev := range m.Interacts {
		if e.CheckConditions(ev) && e.StartEvent(ctx, ev) {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}

// CheckConditions reports whether every condition of ev holds. In debug
// mode all conditions are evaluated and partial results are recorded.
func (e *Engine) CheckConditions(ev types.EventObject) bool {
	if !e.debug {
		for _, c := range ev.Conditions {
			if !e.CheckCondition(c) {
				return false
			}
		}
		return true
	}

	all := true
	some := false
	results := make([]ConditionResult, len(ev.Conditions))
	for i, c := range ev.Conditions {
		ok := e.CheckCondition(c)
		results[i] = ConditionResult{Condition: c, Passed: ok}
		all = all && ok
		some = some || ok
	}
	if some {
		e.partial = append(e.partial, PartialEvent{Event: ev, Results: results})
	}
	return all
}

// CheckCondition tests c and applies its operator. Unknown conditions are
// logged and never hold.
func (e *Engine) CheckCondition(c types.MapCondition) bool {
	cond, ok := e.catalog.Condition(c.Type)
	if !ok {
		e.log.Warn("condition not found",
			zap.String("condition", c.Type),
			zap.Error(ErrUnknownCondition))
		return false
	}
	return cond.Test(e.session, c) == (c.Operator == "is")
}

// StartEvent creates a running record for ev. Starting an event that is
// already running is a no-op and reports false.
func (e *Engine) StartEvent(ctx context.Context, ev types.EventObject) bool {
	if _, ok := e.running[ev.ID]; ok {
		return false
	}
	e.running[ev.ID] = NewRunningEvent(ev)
	e.order = append(e.order, ev.ID)
	e.started = append(e.started, ev.ID)

	mapName := ""
	if m := e.session.Map(); m != nil {
		mapName = m.Name
	}
	e.log.Info("event started",
		zap.String("event", ev.ID),
		zap.String("name", ev.Name),
		zap.String("map", mapName))
	e.metrics.RecordEventStarted(ctx, mapName, ev.ID)
	return true
}

// RunActions starts an ad-hoc event running actions and returns its id.
func (e *Engine) RunActions(ctx context.Context, actions []types.MapAction) string {
	e.scripts++
	ev := types.EventObject{
		ID:      fmt.Sprintf("script-%d", e.scripts),
		Name:    "script",
		Type:    "script",
		Actions: actions,
	}
	e.StartEvent(ctx, ev)
	return ev.ID
}

// ExecuteAction runs one action to completion outside any event. Actions
// that span frames spin until done, so callers bound it with ctx.
func (e *Engine) ExecuteAction(ctx context.Context, typ string, params []string) error {
	act, err := e.catalog.NewAction(types.MapAction{Type: typ, Parameters: params})
	if err != nil {
		e.log.Warn("action not executed", zap.String("action", typ), zap.Error(err))
		e.metrics.RecordEventDropped(ctx, dropReason(err))
		return err
	}

	act.Start(e.session)
	for !act.Done() {
		if err := ctx.Err(); err != nil {
			act.Cleanup(e.session)
			return fmt.Errorf("executing %s: %w", typ, err)
		}
		act.Update(e.session)
	}
	act.Cleanup(e.session)
	e.metrics.RecordActionCompleted(ctx, typ)
	return nil
}

// IsRunning reports whether the event with id is running.
func (e *Engine) IsRunning(id string) bool {
	_, ok := e.running[id]
	return ok
}

// Running returns the running event ids in start order.
func (e *Engine) Running() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// RunningEvent returns the record for id.
func (e *Engine) RunningEvent(id string) (*RunningEvent, bool) {
	r, ok := e.running[id]
	return r, ok
}

// PartialEvents returns the debug results of the last frame.
func (e *Engine) PartialEvents() []PartialEvent {
	return e.partial
}

// TakeActivity returns the ids started and finished since the last call.
func (e *Engine) TakeActivity() (started, finished []string) {
	started, finished = e.started, e.finished
	e.started, e.finished = nil, nil
	return started, finished
}

func (e *Engine) updateRunning(ctx context.Context) {
	gen := e.session.World.Generation()
	for _, id := range e.Running() {
		if e.session.World.Generation() != gen {
			return
		}
		r, ok := e.running[id]
		if !ok {
			continue
		}
		e.step(ctx, r, gen)
	}
}

// step advances r until an action needs another frame or the sequence
// ends. Instant actions chain within the same frame.
func (e *Engine) step(ctx context.Context, r *RunningEvent, gen int) {
	changed := func() bool { return e.session.World.Generation() != gen }

	for {
		if r.current == nil {
			next, ok := r.NextAction()
			if !ok {
				e.finish(r)
				return
			}
			act, err := e.catalog.NewAction(next)
			if err != nil {
				e.log.Warn("dropping event",
					zap.String("event", r.Event.ID),
					zap.String("action", next.Type),
					zap.Error(err))
				e.metrics.RecordEventDropped(ctx, dropReason(err))
				e.remove(r.Event.ID)
				return
			}
			r.current = act
			r.currentType = next.Type
			act.Start(e.session)
			if changed() {
				return
			}
		}

		if e.orphaned(r.current) {
			e.log.Debug("stopping action of missing actor",
				zap.String("event", r.Event.ID),
				zap.String("action", r.currentType))
		} else {
			r.current.Update(e.session)
			if changed() {
				return
			}
			if !r.current.Done() {
				return
			}
		}

		r.current.Cleanup(e.session)
		e.metrics.RecordActionCompleted(ctx, r.currentType)
		r.current = nil
		r.currentType = ""
		r.Advance()
	}
}

// orphaned reports whether a is bound to an actor that no longer exists.
func (e *Engine) orphaned(a Action) bool {
	b, ok := a.(Bound)
	if !ok || b.Subject() == "" {
		return false
	}
	_, found := e.session.Actor(b.Subject())
	return !found
}

func (e *Engine) finish(r *RunningEvent) {
	e.remove(r.Event.ID)
	e.finished = append(e.finished, r.Event.ID)
	e.log.Info("event finished", zap.String("event", r.Event.ID))
}

func (e *Engine) remove(id string) {
	delete(e.running, id)
	for i, other := range e.order {
		if other == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, ErrBadParams):
		return "bad_params"
	default:
		return "construction"
	}
}
