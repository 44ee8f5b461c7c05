package building

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

// ErrInvalidModel is fatal: the payload is missing, malformed or violates the
// element shape rules.
var ErrInvalidModel = errors.New("invalid building model")

// ParseModelFile reads and parses a building JSON file
func ParseModelFile(path string) (*BuildingModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseModelJSON(data)
}

// ParseModelJSON parses building JSON data, validates element shapes and
// resolves wall kinds.
func ParseModelJSON(data []byte) (*BuildingModel, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty payload: %w", ErrInvalidModel)
	}
	var m BuildingModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w: %w", ErrInvalidModel, err)
	}
	return m.normalized()
}

// normalized returns a copy of m with every wall kind resolved, after
// checking element shapes. m itself is not modified.
func (m *BuildingModel) normalized() (*BuildingModel, error) {
	out := *m
	out.Components.Walls = slices.Clone(m.Components.Walls)
	for i := range out.Components.Walls {
		out.Components.Walls[i].resolveKind()
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks the per-element vertex counts and enumerations.
// Coincident vertices are left for the document to reject.
func (m *BuildingModel) Validate() error {
	for i, w := range m.Components.Walls {
		if len(w.Vertices) < 2 {
			return fmt.Errorf("walls[%d] %q: need at least 2 vertices, got %d: %w", i, w.ID, len(w.Vertices), ErrInvalidModel)
		}
		switch w.Kind {
		case WallStandard, WallRoof:
		default:
			return fmt.Errorf("walls[%d] %q: unknown kind %q: %w", i, w.ID, w.Kind, ErrInvalidModel)
		}
	}
	for i, f := range m.Components.Floors {
		if len(f.Vertices) < 3 {
			return fmt.Errorf("floors[%d] %q: need at least 3 vertices, got %d: %w", i, f.ID, len(f.Vertices), ErrInvalidModel)
		}
	}
	for i, o := range m.Components.Openings {
		if len(o.Vertices) != 4 {
			return fmt.Errorf("openings[%d] %q: need 4 vertices, got %d: %w", i, o.ID, len(o.Vertices), ErrInvalidModel)
		}
		switch o.Type {
		case OpeningWindow, OpeningDoor:
		default:
			return fmt.Errorf("openings[%d] %q: unknown type %q: %w", i, o.ID, o.Type, ErrInvalidModel)
		}
	}
	return nil
}

// Midpoint returns the midpoint of the opening's diagonal, vertices 0 and 2.
func (o OpeningSpec) Midpoint() Vertex {
	a, b := o.Vertices[0], o.Vertices[2]
	return Vertex{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
}
