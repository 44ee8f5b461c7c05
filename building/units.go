package building

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Internal units a host document may use for lengths.
const (
	UnitFeet        = "feet"
	UnitMeters      = "meters"
	UnitMillimeters = "millimeters"
)

const metersPerFoot = 0.3048

// UnitConverter converts author meters into the document's internal length unit.
type UnitConverter struct {
	unit  string
	scale float64 // internal units per meter
}

// NewUnitConverter returns a converter for the named internal unit.
func NewUnitConverter(internal string) (UnitConverter, error) {
	switch internal {
	case UnitFeet, "":
		return UnitConverter{unit: UnitFeet, scale: 1 / metersPerFoot}, nil
	case UnitMeters:
		return UnitConverter{unit: UnitMeters, scale: 1}, nil
	case UnitMillimeters:
		return UnitConverter{unit: UnitMillimeters, scale: 1000}, nil
	default:
		return UnitConverter{}, fmt.Errorf("unsupported internal unit %q", internal)
	}
}

// Unit returns the internal unit name.
func (c UnitConverter) Unit() string {
	return c.unit
}

// ToInternal converts a length in meters.
func (c UnitConverter) ToInternal(meters float64) float64 {
	return meters * c.scale
}

// FromInternal converts an internal length back to meters.
func (c UnitConverter) FromInternal(v float64) float64 {
	return v / c.scale
}

// Point converts a vertex to an internal-unit point.
func (c UnitConverter) Point(v Vertex) r3.Vec {
	return r3.Vec{X: c.ToInternal(v.X), Y: c.ToInternal(v.Y), Z: c.ToInternal(v.Z)}
}

// Points converts an ordered vertex list.
func (c UnitConverter) Points(vs []Vertex) []r3.Vec {
	out := make([]r3.Vec, len(vs))
	for i, v := range vs {
		out[i] = c.Point(v)
	}
	return out
}
