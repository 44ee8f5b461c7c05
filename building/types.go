package building

import (
	"encoding/json"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// BuildingModel is the root of a parsed building JSON document.
// Coordinates are in meters; Units is informational only.
type BuildingModel struct {
	BuildingID string     `json:"buildingId"`
	Components Components `json:"components"`
	Units      string     `json:"units,omitempty"`
}

// Components groups the semantic elements of a building in input order.
type Components struct {
	Walls    []WallSpec    `json:"walls"`
	Floors   []FloorSpec   `json:"floors"`
	Columns  []ColumnSpec  `json:"columns"`
	Beams    []BeamSpec    `json:"beams,omitempty"`
	Openings []OpeningSpec `json:"openings"`
}

// Vertex is a point in author units (meters)
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// WallKind discriminates walls bound by floor pass from roof walls.
type WallKind string

const (
	WallStandard WallKind = "standard"
	// WallRoof walls are created once, on the last floor pass, at the
	// second-highest level.
	WallRoof WallKind = "roof"
)

// penthouseMarker flags a roof wall in inputs that carry no explicit kind.
const penthouseMarker = "penthouse"

// WallSpec is a wall profile: an ordered vertex ring closed implicitly.
type WallSpec struct {
	ID       string   `json:"id"`
	Kind     WallKind `json:"kind,omitempty"`
	Vertices []Vertex `json:"vertices"`

	// kindDerived is set when Kind was filled in from the id.
	kindDerived bool
}

// FloorSpec is a planar floor boundary. Vertices[0].Z sets the floor elevation.
type FloorSpec struct {
	ID       string   `json:"id"`
	Vertices []Vertex `json:"vertices"`
}

// Elevation returns the z of the first vertex in meters.
func (f FloorSpec) Elevation() float64 {
	if len(f.Vertices) == 0 {
		return 0
	}
	return f.Vertices[0].Z
}

// ColumnSpec is a column axis from base to top.
type ColumnSpec struct {
	ID         string `json:"id"`
	StartPoint Vertex `json:"startPoint"`
	EndPoint   Vertex `json:"endPoint"`
}

// UnmarshalJSON accepts both {startPoint, endPoint} and the two-vertex
// {vertices: [base, top]} form.
func (c *ColumnSpec) UnmarshalJSON(data []byte) error {
	var raw linearSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, end, err := raw.endpoints()
	if err != nil {
		return fmt.Errorf("column %q: %w", raw.ID, err)
	}
	*c = ColumnSpec{ID: raw.ID, StartPoint: start, EndPoint: end}
	return nil
}

// BeamSpec is a structural framing member between two points.
type BeamSpec struct {
	ID         string `json:"id"`
	StartPoint Vertex `json:"startPoint"`
	EndPoint   Vertex `json:"endPoint"`
}

// UnmarshalJSON accepts the same two forms as ColumnSpec.
func (b *BeamSpec) UnmarshalJSON(data []byte) error {
	var raw linearSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, end, err := raw.endpoints()
	if err != nil {
		return fmt.Errorf("beam %q: %w", raw.ID, err)
	}
	*b = BeamSpec{ID: raw.ID, StartPoint: start, EndPoint: end}
	return nil
}

// linearSpec is the wire shape shared by columns and beams.
type linearSpec struct {
	ID         string   `json:"id"`
	StartPoint *Vertex  `json:"startPoint"`
	EndPoint   *Vertex  `json:"endPoint"`
	Vertices   []Vertex `json:"vertices"`
}

func (l linearSpec) endpoints() (Vertex, Vertex, error) {
	if l.StartPoint != nil && l.EndPoint != nil {
		return *l.StartPoint, *l.EndPoint, nil
	}
	if len(l.Vertices) >= 2 {
		return l.Vertices[0], l.Vertices[1], nil
	}
	return Vertex{}, Vertex{}, fmt.Errorf("needs startPoint/endPoint or two vertices")
}

// OpeningType selects the family category used for an opening.
type OpeningType string

const (
	OpeningWindow OpeningType = "window"
	OpeningDoor   OpeningType = "door"
)

// OpeningSpec is a planar quad; Vertices[0] and Vertices[2] are the diagonal.
type OpeningSpec struct {
	ID       string      `json:"id"`
	Type     OpeningType `json:"type"`
	Vertices []Vertex    `json:"vertices"`
}

// resolveKind fixes the wall kind once, before any pass runs.
func (w *WallSpec) resolveKind() {
	if w.Kind != "" {
		return
	}
	w.kindDerived = true
	if strings.Contains(w.ID, penthouseMarker) {
		w.Kind = WallRoof
	} else {
		w.Kind = WallStandard
	}
}

// ElementID identifies an element in a host document.
type ElementID int64

// InvalidElementID is never assigned by a document.
const InvalidElementID ElementID = 0

// Level is a named horizontal reference plane. Elevation is in internal units.
type Level struct {
	ID        ElementID `json:"id"`
	Name      string    `json:"name"`
	Elevation float64   `json:"elevation"`
}

// Category classifies element types in a document.
type Category string

const (
	CategoryWallType         Category = "wall_type"
	CategoryFloorType        Category = "floor_type"
	CategoryStructuralColumn Category = "structural_column"
	CategoryStructuralFrame  Category = "structural_framing"
	CategoryWindow           Category = "window"
	CategoryDoor             Category = "door"
)

// ElementType is a placeable type (wall type, floor type or family symbol).
type ElementType struct {
	ID       ElementID `json:"id" yaml:"-"`
	Name     string    `json:"name" yaml:"name"`
	Category Category  `json:"category" yaml:"category"`
	Active   bool      `json:"active" yaml:"active"`
}

// ElementKind is the kind of a created element.
type ElementKind string

const (
	KindWall    ElementKind = "wall"
	KindFloor   ElementKind = "floor"
	KindColumn  ElementKind = "column"
	KindBeam    ElementKind = "beam"
	KindOpening ElementKind = "opening"
	KindLevel   ElementKind = "level"
)

// StructuralKind mirrors the structural role of a family instance.
type StructuralKind string

const (
	StructuralNone   StructuralKind = "non_structural"
	StructuralColumn StructuralKind = "column"
	StructuralBeam   StructuralKind = "beam"
	// StructuralBearing marks a load-bearing wall.
	StructuralBearing StructuralKind = "bearing"
)

// Built-in parameter names.
const (
	ParamUserHeight = "WALL_USER_HEIGHT_PARAM"
	ParamKeyRef     = "WALL_KEY_REF_PARAM"
	ParamMark       = "ALL_MODEL_MARK"
)

// Element is a read-only view of a created element.
type Element struct {
	ID         ElementID      `json:"id"`
	Kind       ElementKind    `json:"kind"`
	LevelID    ElementID      `json:"levelId"`
	TypeID     ElementID      `json:"typeId"`
	HostID     ElementID      `json:"hostId,omitempty"`
	Structural StructuralKind `json:"structural,omitempty"`
	// Loops holds the wall profile or the floor boundaries.
	Loops []CurveLoop `json:"loops,omitempty"`
	// Location is the wall location line or the column/beam axis.
	Location *Segment `json:"location,omitempty"`
	// Point is the insertion point of point-based instances.
	Point *r3.Vec `json:"point,omitempty"`
}
