package building

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"gonum.org/v1/gonum/spatial/r3"
)

// outlineTolerance drops collinear floor vertices (meters).
const outlineTolerance = 1e-6

// PlanFeatureCollection exports the elements of one level as GeoJSON in
// meters. Floors are polygons, walls and beams their axis lines, columns and
// openings points.
func PlanFeatureCollection(doc Document, level Level, conv UnitConverter) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	toPoint := func(v r3.Vec) orb.Point {
		return orb.Point{conv.FromInternal(v.X), conv.FromInternal(v.Y)}
	}
	toLine := func(s Segment) orb.LineString {
		return orb.LineString{toPoint(s.Start), toPoint(s.End)}
	}

	for _, kind := range []ElementKind{KindFloor, KindWall, KindColumn, KindBeam, KindOpening} {
		els, err := doc.Elements(kind)
		if err != nil {
			return nil, fmt.Errorf("listing %s elements: %w", kind, err)
		}
		for _, e := range els {
			if e.LevelID != level.ID {
				continue
			}
			var geom orb.Geometry
			switch {
			case kind == KindFloor && len(e.Loops) > 0:
				poly := make(orb.Polygon, 0, len(e.Loops))
				for _, l := range e.Loops {
					ring := make(orb.Ring, 0, len(l)+1)
					for _, v := range l.Vertices() {
						ring = append(ring, toPoint(v))
					}
					ring = append(ring, ring[0])
					poly = append(poly, ring)
				}
				geom = simplify.DouglasPeucker(outlineTolerance).Simplify(poly)
			case kind == KindColumn && e.Location != nil:
				geom = toPoint(e.Location.Start)
			case e.Location != nil:
				geom = toLine(*e.Location)
			case e.Point != nil:
				geom = toPoint(*e.Point)
			default:
				continue
			}

			f := geojson.NewFeature(geom)
			f.ID = int64(e.ID)
			f.Properties["kind"] = string(e.Kind)
			f.Properties["level"] = level.Name
			f.Properties["typeId"] = int64(e.TypeID)
			if e.HostID != InvalidElementID {
				f.Properties["hostId"] = int64(e.HostID)
			}
			if e.Structural != "" {
				f.Properties["structural"] = string(e.Structural)
			}
			fc.Append(f)
		}
	}
	return fc, nil
}
