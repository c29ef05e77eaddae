package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/tilecore/engine/actions"
	"github.com/nathoo/tilecore/engine/conditions"
	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/types"
)

func builtinCatalog() *events.Catalog {
	c := events.NewCatalog()
	conditions.Register(c)
	actions.Register(c)
	return c
}

func validMap() *tilemap.Map {
	m := tilemap.New("town", 4, 4)
	m.Events = []types.EventObject{{
		ID: "1", Name: "door", Type: "event", X: 3, Y: 3, W: 1, H: 1,
		Conditions: []types.MapCondition{{Type: "char_at", Parameters: []string{"player"}, Operator: "is"}},
		Actions:    []types.MapAction{{Type: "teleport", Parameters: []string{"cave", "1", "1"}}},
	}}
	return m
}

func TestValidate_ValidMap(t *testing.T) {
	if ve := Validate(validMap(), builtinCatalog()); ve != nil {
		t.Fatalf("expected no findings, got: %v %v", ve.Errors, ve.Warnings)
	}
}

func TestValidate_Route(t *testing.T) {
	m, err := Load("testdata/route.tmx", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ve := Validate(m, builtinCatalog()); ve != nil && len(ve.Errors) > 0 {
		t.Errorf("route.tmx errors: %v", ve.Errors)
	}
}

func TestValidate_UnknownVerbs(t *testing.T) {
	m := validMap()
	m.Events[0].Conditions = append(m.Events[0].Conditions, types.MapCondition{Type: "is_raining", Operator: "is"})
	m.Events[0].Actions = append(m.Events[0].Actions, types.MapAction{Type: "dance"})

	ve := Validate(m, builtinCatalog())
	if ve == nil || len(ve.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %+v", ve)
	}
	if !strings.Contains(ve.Errors[0], `unknown condition "is_raining"`) {
		t.Errorf("error 0 = %q", ve.Errors[0])
	}
	if !strings.Contains(ve.Errors[1], `unknown action "dance"`) {
		t.Errorf("error 1 = %q", ve.Errors[1])
	}
	if !strings.Contains(ve.Error(), "2 error(s)") {
		t.Errorf("Error() = %q", ve.Error())
	}
}

func TestValidate_Warnings(t *testing.T) {
	m := validMap()
	m.Events[0].X = 4
	m.Interacts = []types.EventObject{{ID: "2", Name: "empty", Type: "interact", X: 0, Y: 0, W: 1, H: 1}}

	ve := Validate(m, builtinCatalog())
	if ve == nil {
		t.Fatal("expected warnings")
	}
	if len(ve.Errors) != 0 {
		t.Errorf("unexpected errors: %v", ve.Errors)
	}
	if len(ve.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", ve.Warnings)
	}
	if !strings.Contains(ve.Warnings[0], "outside") {
		t.Errorf("warning 0 = %q", ve.Warnings[0])
	}
	if !strings.Contains(ve.Warnings[1], "no actions") {
		t.Errorf("warning 1 = %q", ve.Warnings[1])
	}
}

func TestValidate_DuplicateIDs(t *testing.T) {
	m := validMap()
	dup := m.Events[0]
	dup.Name = "copy"
	m.Events = append(m.Events, dup)

	ve := Validate(m, builtinCatalog())
	if ve == nil || len(ve.Errors) != 1 || !strings.Contains(ve.Errors[0], "reuses id") {
		t.Errorf("expected a duplicate id error, got %+v", ve)
	}
}
