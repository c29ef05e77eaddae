package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/types"
)

// scriptDocument is a supplementary event file:
//
//	events:
//	  greet maple:
//	    x: 3
//	    y: 4
//	    width: 1
//	    height: 1
//	    type: event
//	    behav: ["talk maple"]
//	    actions: ["say Hello!"]
type scriptDocument struct {
	Events yaml.Node `yaml:"events"`
}

type scriptEvent struct {
	X          *int     `yaml:"x"`
	Y          *int     `yaml:"y"`
	Width      *int     `yaml:"width"`
	Height     *int     `yaml:"height"`
	Type       string   `yaml:"type"`
	Actions    []string `yaml:"actions"`
	Conditions []string `yaml:"conditions"`
	Behav      []string `yaml:"behav"`
}

// scriptFields are the keys a script event may carry. Node.Decode ignores
// unknown keys, so they are checked before decoding.
var scriptFields = map[string]bool{
	"x": true, "y": true, "width": true, "height": true,
	"type": true, "actions": true, "conditions": true, "behav": true,
}

// LoadScript reads a script document and merges its events onto m.
func LoadScript(path string, m *tilemap.Map) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening script %s: %w", path, err)
	}
	defer f.Close()
	if err := LoadScriptFromReader(f, m); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// LoadScriptFromReader parses a script document from r and merges its
// events onto m, in document order. Every event gets a fresh UUID.
func LoadScriptFromReader(r io.Reader, m *tilemap.Map) error {
	var doc scriptDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Events.Kind == 0 {
		return nil
	}
	if doc.Events.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: events must be a mapping", doc.Events.Line)
	}

	for i := 0; i+1 < len(doc.Events.Content); i += 2 {
		name := doc.Events.Content[i].Value
		node := doc.Events.Content[i+1]
		if err := checkFields(node); err != nil {
			return fmt.Errorf("event %q: %w", name, err)
		}
		var se scriptEvent
		if err := node.Decode(&se); err != nil {
			return fmt.Errorf("event %q: %w", name, err)
		}
		if err := mergeScriptEvent(m, name, se); err != nil {
			return err
		}
	}
	return nil
}

func checkFields(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: event must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !scriptFields[key.Value] {
			return fmt.Errorf("line %d: field %s not found in type scriptEvent", key.Line, key.Value)
		}
	}
	return nil
}

func mergeScriptEvent(m *tilemap.Map, name string, se scriptEvent) error {
	if se.X == nil || se.Y == nil || se.Width == nil || se.Height == nil {
		return fmt.Errorf("event %q: x, y, width and height are required", name)
	}
	x, y, w, h := *se.X, *se.Y, *se.Width, *se.Height
	typ := se.Type
	if typ == "" {
		typ = "event"
	}

	if typ == "collision" {
		for ty := y; ty < y+h; ty++ {
			for tx := x; tx < x+w; tx++ {
				m.Block(types.Tile{X: tx, Y: ty})
			}
		}
		return nil
	}

	// Reuse the property grammar: number the statements of each section.
	props := make(map[string]string, len(se.Actions)+len(se.Conditions)+len(se.Behav))
	for i, s := range se.Actions {
		props[fmt.Sprintf("act%d", i+1)] = s
	}
	for i, s := range se.Conditions {
		props[fmt.Sprintf("cond%d", i+1)] = s
	}
	for i, s := range se.Behav {
		props[fmt.Sprintf("behav%d", i+1)] = s
	}
	ev, err := newEvent(uuid.NewString(), name, typ, x, y, w, h, props)
	if err != nil {
		return err
	}
	return addEvent(m, ev)
}

// addEvent files ev under the list for its type.
func addEvent(m *tilemap.Map, ev types.EventObject) error {
	switch ev.Type {
	case "event":
		m.Events = append(m.Events, ev)
	case "init":
		m.Inits = append(m.Inits, ev)
	case "interact":
		m.Interacts = append(m.Interacts, ev)
	default:
		return fmt.Errorf("event %q: unknown type %q", ev.Name, ev.Type)
	}
	return nil
}
