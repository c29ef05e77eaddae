package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/tilecore/engine/events"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Validate checks a loaded map against the verbs in catalog. Unknown verbs
// are errors; zones that leave the map and events that do nothing are
// warnings. It returns nil when there is nothing to report.
func Validate(m *tilemap.Map, catalog *events.Catalog) *ValidationError {
	ve := &ValidationError{}

	seen := make(map[string]string)
	for _, ev := range m.AllEvents() {
		label := fmt.Sprintf("%s %q", ev.Type, ev.Name)

		if prev, dup := seen[ev.ID]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s reuses id %s of %s", label, ev.ID, prev))
		}
		seen[ev.ID] = label

		for _, c := range ev.Conditions {
			if _, ok := catalog.Condition(c.Type); !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s: unknown condition %q", label, c.Type))
			}
		}
		for _, a := range ev.Actions {
			if !catalog.HasAction(a.Type) {
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s: unknown action %q", label, a.Type))
			}
		}

		if len(ev.Actions) == 0 {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s has no actions", label))
		}
		if ev.Type != "init" && !zoneOnMap(m, ev) {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"%s zone (%d, %d) %dx%d lies outside the %dx%d map",
				label, ev.X, ev.Y, ev.W, ev.H, m.Width, m.Height))
		}
	}

	if len(ve.Errors) == 0 && len(ve.Warnings) == 0 {
		return nil
	}
	return ve
}

// zoneOnMap reports whether every corner of the event's zone is on the map.
// Zero-sized zones only need their origin on the map.
func zoneOnMap(m *tilemap.Map, ev types.EventObject) bool {
	w, h := max(ev.W, 1), max(ev.H, 1)
	return m.InBounds(types.Tile{X: ev.X, Y: ev.Y}) &&
		m.InBounds(types.Tile{X: ev.X + w - 1, Y: ev.Y + h - 1})
}
