package events

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/nathoo/tilecore/engine/session"
	"github.com/nathoo/tilecore/engine/state"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/engine/world"
	"github.com/nathoo/tilecore/types"
)

// --- stub verbs ---

type countAction struct {
	Base
	key string
}

func (a *countAction) Start(s *session.Session) {
	n, _ := s.State.Number(a.key)
	s.State.Set(a.key, strconv.Itoa(int(n)+1))
}

type framesAction struct {
	Base
	left int
}

func (a *framesAction) Start(*session.Session) {}

func (a *framesAction) Update(*session.Session) {
	a.left--
	if a.left <= 0 {
		a.Stop()
	}
}

type foreverAction struct {
	Base
	cleaned *bool
}

func (a *foreverAction) Start(*session.Session)  {}
func (a *foreverAction) Update(*session.Session) {}
func (a *foreverAction) Cleanup(*session.Session) {
	if a.cleaned != nil {
		*a.cleaned = true
	}
}

type boundAction struct {
	foreverAction
	slug string
}

func (a *boundAction) Subject() string { return a.slug }

type mapChangeAction struct{ Base }

func (a *mapChangeAction) Start(s *session.Session) {
	s.World.ChangeMap(context.Background(), tilemap.New("elsewhere", 4, 4))
}

func testCatalog() *Catalog {
	c := NewCatalog()
	c.RegisterCondition("true", ConditionFunc(func(*session.Session, types.MapCondition) bool { return true }))
	c.RegisterCondition("variable_set", ConditionFunc(func(s *session.Session, mc types.MapCondition) bool {
		_, ok := s.State.Get(mc.Parameters[0])
		return ok
	}))
	c.RegisterCondition("interacting", ConditionFunc(func(s *session.Session, _ types.MapCondition) bool {
		return s.Interacting
	}))
	c.RegisterAction("count", func(p []string) (Action, error) {
		params := NewParams(p)
		key := params.String(0)
		return &countAction{key: key}, params.Err()
	})
	c.RegisterAction("frames", func(p []string) (Action, error) {
		params := NewParams(p)
		n := params.Int(0)
		return &framesAction{left: n}, params.Err()
	})
	c.RegisterAction("forever", func([]string) (Action, error) { return &foreverAction{}, nil })
	c.RegisterAction("bound", func(p []string) (Action, error) { return &boundAction{slug: p[0]}, nil })
	c.RegisterAction("map_change", func([]string) (Action, error) { return &mapChangeAction{}, nil })
	return c
}

func setup(t *testing.T, m *tilemap.Map) (*Engine, *session.Session) {
	t.Helper()
	w := world.New(world.Config{}, nil, nil)
	s := session.New(w, state.New(), state.NewRNG(1), nil, nil)
	e := New(s, testCatalog(), nil, nil)
	w.ChangeMap(context.Background(), m)
	return e, s
}

func is(typ string, args ...string) types.MapCondition {
	return types.MapCondition{Type: typ, Parameters: args, Operator: "is"}
}

func not(typ string, args ...string) types.MapCondition {
	return types.MapCondition{Type: typ, Parameters: args, Operator: "not"}
}

func act(typ string, args ...string) types.MapAction {
	return types.MapAction{Type: typ, Parameters: args}
}

func event(id string, conds []types.MapCondition, acts ...types.MapAction) types.EventObject {
	return types.EventObject{ID: id, Name: id, Type: "event", Conditions: conds, Actions: acts}
}

func count(t *testing.T, s *session.Session, key string) int {
	t.Helper()
	n, _ := s.State.Number(key)
	return int(n)
}

// --- tests ---

func TestRunningEventSequencing(t *testing.T) {
	r := NewRunningEvent(event("e", nil, act("one"), act("two")))

	a, ok := r.NextAction()
	if !ok || a.Type != "one" {
		t.Fatalf("NextAction = %v, %v, want one", a.Type, ok)
	}
	r.Advance()
	a, ok = r.NextAction()
	if !ok || a.Type != "two" {
		t.Fatalf("NextAction = %v, %v, want two", a.Type, ok)
	}
	r.Advance()
	if _, ok := r.NextAction(); ok {
		t.Error("expected end of sequence")
	}
}

func TestStartEventIdempotent(t *testing.T) {
	e, _ := setup(t, tilemap.New("m", 4, 4))
	ev := event("e1", nil, act("forever"))
	ctx := context.Background()

	if !e.StartEvent(ctx, ev) {
		t.Fatal("first start should succeed")
	}
	e.Update(ctx)
	r, _ := e.RunningEvent("e1")
	idx := r.ActionIndex

	if e.StartEvent(ctx, ev) {
		t.Error("second start should be a no-op")
	}
	if got := e.Running(); !reflect.DeepEqual(got, []string{"e1"}) {
		t.Errorf("Running = %v, want [e1]", got)
	}
	if r2, _ := e.RunningEvent("e1"); r2 != r || r2.ActionIndex != idx || r2.Current() != "forever" {
		t.Error("running record was replaced or restarted")
	}
}

func TestVariableSetOnceAcrossUpdates(t *testing.T) {
	m := tilemap.New("m", 4, 4)
	m.Events = []types.EventObject{event("e1", []types.MapCondition{is("true")}, act("count", "hits"))}
	e, s := setup(t, m)
	ctx := context.Background()

	e.Update(ctx)
	if got := count(t, s, "hits"); got != 1 {
		t.Fatalf("hits after one update = %d, want 1", got)
	}
	for i := 0; i < 50; i++ {
		e.Update(ctx)
	}
	if got := count(t, s, "hits"); got != 1 {
		t.Errorf("hits after many updates = %d, want 1", got)
	}
}

func TestRetriggerAfterFalse(t *testing.T) {
	m := tilemap.New("m", 4, 4)
	m.Events = []types.EventObject{event("e1", []types.MapCondition{is("variable_set", "armed")}, act("count", "hits"))}
	e, s := setup(t, m)
	ctx := context.Background()

	e.Update(ctx)
	if got := count(t, s, "hits"); got != 0 {
		t.Fatalf("hits = %d, want 0", got)
	}

	s.State.Set("armed", "1")
	e.Update(ctx)
	e.Update(ctx)
	s.State.Clear("armed")
	e.Update(ctx)
	s.State.Set("armed", "1")
	e.Update(ctx)

	if got := count(t, s, "hits"); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
}

func TestRetriggerWhileRunningIsKept(t *testing.T) {
	m := tilemap.New("m", 4, 4)
	m.Events = []types.EventObject{event("e1", []types.MapCondition{is("variable_set", "armed")},
		act("frames", "3"), act("count", "hits"))}
	e, s := setup(t, m)
	ctx := context.Background()

	s.State.Set("armed", "1")
	e.Update(ctx)
	if !e.IsRunning("e1") {
		t.Fatal("e1 should be running")
	}
	s.State.Clear("armed")
	e.Update(ctx)
	s.State.Set("armed", "1")
	e.Update(ctx)

	for i := 0; i < 20; i++ {
		e.Update(ctx)
	}
	if got := count(t, s, "hits"); got != 2 {
		t.Errorf("hits = %d, want 2 (the second rising edge came while running)", got)
	}
	if e.IsRunning("e1") {
		t.Error("e1 should not keep restarting while its conditions stay true")
	}
}

func TestNotOperator(t *testing.T) {
	m := tilemap.New("m", 4, 4)
	m.Events = []types.EventObject{event("e1", []types.MapCondition{not("variable_set", "done")}, act("count", "hits"))}
	e, s := setup(t, m)

	e.Update(context.Background())
	if got := count(t, s, "hits"); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestUnknownConditionNeverHolds(t *testing.T) {
	e, _ := setup(t, tilemap.New("m", 4, 4))
	if e.CheckCondition(is("nope")) {
		t.Error("unknown condition with is should be false")
	}
	if e.CheckCondition(not("nope")) {
		t.Error("unknown condition with not should be false")
	}
}

func TestInstantActionsChainInOneFrame(t *testing.T) {
	e, s := setup(t, tilemap.New("m", 4, 4))
	ctx := context.Background()
	e.StartEvent(ctx, event("e1", nil, act("count", "a"), act("count", "b"), act("count", "c")))

	e.Update(ctx)
	for _, k := range []string{"a", "b", "c"} {
		if got := count(t, s, k); got != 1 {
			t.Errorf("%s = %d, want 1", k, got)
		}
	}
	if e.IsRunning("e1") {
		t.Error("event should finish in the same frame")
	}
	started, finished := e.TakeActivity()
	if !reflect.DeepEqual(started, []string{"e1"}) || !reflect.DeepEqual(finished, []string{"e1"}) {
		t.Errorf("activity = %v / %v", started, finished)
	}
}

func TestMultiFrameActionBlocksSequence(t *testing.T) {
	e, s := setup(t, tilemap.New("m", 4, 4))
	ctx := context.Background()
	e.StartEvent(ctx, event("e1", nil, act("frames", "3"), act("count", "after")))

	e.Update(ctx)
	e.Update(ctx)
	if got := count(t, s, "after"); got != 0 {
		t.Fatalf("after = %d before the wait finished", got)
	}
	e.Update(ctx)
	if got := count(t, s, "after"); got != 1 {
		t.Errorf("after = %d, want 1 in the frame the wait ends", got)
	}
}

func TestDropOnUnknownActionAndBadParams(t *testing.T) {
	e, s := setup(t, tilemap.New("m", 4, 4))
	ctx := context.Background()
	e.StartEvent(ctx, event("bad", nil, act("count", "x"), act("missing"), act("count", "y")))
	e.StartEvent(ctx, event("params", nil, act("frames", "soon")))
	e.StartEvent(ctx, event("good", nil, act("count", "z")))

	e.Update(ctx)

	if count(t, s, "x") != 1 || count(t, s, "y") != 0 {
		t.Error("bad event should run up to the unknown action and stop")
	}
	if count(t, s, "z") != 1 {
		t.Error("other events should keep running")
	}
	if len(e.Running()) != 0 {
		t.Errorf("Running = %v, want none", e.Running())
	}
}

func TestMapChangeAbortsIteration(t *testing.T) {
	e, s := setup(t, tilemap.New("m", 4, 4))
	ctx := context.Background()
	e.StartEvent(ctx, event("first", nil, act("map_change"), act("count", "lost")))
	e.StartEvent(ctx, event("second", nil, act("count", "skipped")))

	e.Update(ctx)

	if s.Map().Name != "elsewhere" {
		t.Fatalf("map = %q", s.Map().Name)
	}
	if count(t, s, "lost") != 0 || count(t, s, "skipped") != 0 {
		t.Error("no further actions should run after a map change")
	}
	if len(e.Running()) != 0 {
		t.Errorf("Running = %v, want cleared", e.Running())
	}
}

func TestInitEventsRunOncePerLoad(t *testing.T) {
	m := tilemap.New("m", 4, 4)
	m.Inits = []types.EventObject{event("init", []types.MapCondition{is("true")}, act("count", "inits"))}
	e, s := setup(t, m)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e.Update(ctx)
	}
	if got := count(t, s, "inits"); got != 1 {
		t.Fatalf("inits = %d, want 1", got)
	}

	s.World.ChangeMap(ctx, m)
	e.Update(ctx)
	if got := count(t, s, "inits"); got != 2 {
		t.Errorf("inits after reload = %d, want 2", got)
	}
}

func TestProcessInteracts(t *testing.T) {
	m := tilemap.New("m", 4, 4)
	m.Interacts = []types.EventObject{event("talk", []types.MapCondition{is("interacting")}, act("count", "talks"))}
	e, s := setup(t, m)
	ctx := context.Background()

	e.Update(ctx)
	if got := count(t, s, "talks"); got != 0 {
		t.Fatalf("interact ran without a button press")
	}

	if ids := e.ProcessInteracts(ctx); !reflect.DeepEqual(ids, []string{"talk"}) {
		t.Errorf("ProcessInteracts = %v, want [talk]", ids)
	}
	if s.Interacting {
		t.Error("Interacting should be reset")
	}
	e.Update(ctx)
	if got := count(t, s, "talks"); got != 1 {
		t.Errorf("talks = %d, want 1", got)
	}
}

func TestOrphanedActionStops(t *testing.T) {
	e, s := setup(t, tilemap.New("m", 4, 4))
	ctx := context.Background()
	if _, err := s.World.Spawn("npc", types.Tile{X: 1, Y: 1}, types.Down); err != nil {
		t.Fatal(err)
	}
	e.StartEvent(ctx, event("e1", nil, act("bound", "npc"), act("count", "after")))

	e.Update(ctx)
	if !e.IsRunning("e1") {
		t.Fatal("bound action should wait while its actor exists")
	}

	s.World.RemoveActor("npc")
	e.Update(ctx)
	if e.IsRunning("e1") || count(t, s, "after") != 1 {
		t.Error("action should be stopped once its actor is gone")
	}
}

func TestExecuteAction(t *testing.T) {
	e, s := setup(t, tilemap.New("m", 4, 4))

	if err := e.ExecuteAction(context.Background(), "count", []string{"n"}); err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if got := count(t, s, "n"); got != 1 {
		t.Errorf("n = %d, want 1", got)
	}

	if err := e.ExecuteAction(context.Background(), "missing", nil); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("err = %v, want ErrUnknownAction", err)
	}
	if err := e.ExecuteAction(context.Background(), "frames", []string{"x"}); !errors.Is(err, ErrBadParams) {
		t.Errorf("err = %v, want ErrBadParams", err)
	}
}

func TestExecuteActionHonoursContext(t *testing.T) {
	c := testCatalog()
	cleaned := false
	c.RegisterAction("forever", func([]string) (Action, error) { return &foreverAction{cleaned: &cleaned}, nil })
	w := world.New(world.Config{}, nil, nil)
	s := session.New(w, state.New(), state.NewRNG(1), nil, nil)
	e := New(s, c, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.ExecuteAction(ctx, "forever", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
	if !cleaned {
		t.Error("expected cleanup on cancellation")
	}
}

func TestRunActions(t *testing.T) {
	e, s := setup(t, tilemap.New("m", 4, 4))
	ctx := context.Background()

	id := e.RunActions(ctx, []types.MapAction{act("frames", "2"), act("count", "done")})
	if !e.IsRunning(id) {
		t.Fatalf("%s not running", id)
	}
	e.Update(ctx)
	e.Update(ctx)
	if e.IsRunning(id) || count(t, s, "done") != 1 {
		t.Error("script should finish after two frames")
	}
}

func TestDebugPartialEvents(t *testing.T) {
	m := tilemap.New("m", 4, 4)
	m.Events = []types.EventObject{
		event("half", []types.MapCondition{is("true"), is("variable_set", "x")}),
		event("none", []types.MapCondition{is("variable_set", "x")}),
	}
	e, _ := setup(t, m)
	e.SetDebug(true)

	e.Update(context.Background())
	partial := e.PartialEvents()
	if len(partial) != 1 || partial[0].Event.ID != "half" {
		t.Fatalf("PartialEvents = %+v, want only half", partial)
	}
	if !partial[0].Results[0].Passed || partial[0].Results[1].Passed {
		t.Errorf("results = %+v", partial[0].Results)
	}
}

func TestParams(t *testing.T) {
	p := NewParams([]string{"npc", "3", "", "1.5", "left"})
	if got := p.String(0); got != "npc" {
		t.Errorf("String(0) = %q", got)
	}
	if got := p.Int(1); got != 3 {
		t.Errorf("Int(1) = %d", got)
	}
	if got := p.OptInt(2, 7); got != 7 {
		t.Errorf("OptInt(2) = %d, want default 7", got)
	}
	if got := p.Float(3); got != 1.5 {
		t.Errorf("Float(3) = %v", got)
	}
	if got := p.Direction(4); got != types.Left {
		t.Errorf("Direction(4) = %v", got)
	}
	if got := p.OptString(9, "def"); got != "def" {
		t.Errorf("OptString(9) = %q", got)
	}
	if p.Err() != nil {
		t.Fatalf("Err = %v", p.Err())
	}

	p.Int(0)
	p.String(8)
	if !errors.Is(p.Err(), ErrBadParams) {
		t.Errorf("Err = %v, want ErrBadParams", p.Err())
	}

	q := NewParams([]string{"a", "b"})
	q.Max(1)
	if q.Err() == nil {
		t.Error("Max should reject extra parameters")
	}
}
