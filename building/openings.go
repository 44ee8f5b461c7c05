package building

import (
	"gonum.org/v1/gonum/spatial/r3"
)

var up = r3.Vec{Z: 1}

// NearestWall returns the wall whose location line is closest to p.
// Ties keep the first wall in document order.
func NearestWall(walls []Element, p r3.Vec) (Element, bool) {
	best := -1
	bestDist := 0.0
	for i, w := range walls {
		if w.Location == nil {
			continue
		}
		d := w.Location.Distance(p)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Element{}, false
	}
	return walls[best], true
}

// HostedPoint offsets p by distance along the horizontal normal of the
// wall's location line, direction × up.
func HostedPoint(wall Element, p r3.Vec, distance float64) r3.Vec {
	normal := r3.Cross(wall.Location.Direction(), up)
	if r3.Norm(normal) == 0 {
		return p
	}
	return r3.Add(p, r3.Scale(distance, r3.Unit(normal)))
}

// PlaceOpenings hosts every opening on its nearest wall in its own
// transaction. Placement failures are recorded silently.
func PlaceOpenings(doc Document, openings []OpeningSpec, conv UnitConverter, cfg *Config, report *Report) error {
	if len(openings) == 0 {
		return nil
	}
	return InTransaction(doc, "Create Openings", func() error {
		symbols := make(map[OpeningType]ElementType, 2)
		for typ, cat := range map[OpeningType]Category{OpeningWindow: CategoryWindow, OpeningDoor: CategoryDoor} {
			t, ok, err := FirstType(doc, cat)
			if err != nil {
				return err
			}
			if ok {
				symbols[typ] = t
			}
		}
		if len(symbols) == 0 {
			report.failed(KindOpening, "", unboundPass, InvalidElementID,
				&ElementError{Code: CodeNoOpeningTypes, Message: "no window or door family loaded", Err: ErrTypeNotFound})
			return nil
		}

		walls, err := doc.Elements(KindWall)
		if err != nil {
			return err
		}
		activated := make(map[ElementID]bool)
		for _, o := range openings {
			placeOpening(doc, o, symbols, activated, walls, conv, cfg, report)
		}
		return nil
	})
}

func placeOpening(doc Document, o OpeningSpec, symbols map[OpeningType]ElementType, activated map[ElementID]bool,
	walls []Element, conv UnitConverter, cfg *Config, report *Report) {
	symbol, ok := symbols[o.Type]
	if !ok {
		report.failed(KindOpening, o.ID, unboundPass, InvalidElementID,
			&ElementError{Code: CodeFamilyTypeMissing, Message: "no " + string(o.Type) + " family", Silent: true, Err: ErrTypeNotFound})
		return
	}
	if !activated[symbol.ID] {
		if err := EnsureActive(doc, symbol); err != nil {
			report.failed(KindOpening, o.ID, unboundPass, InvalidElementID,
				&ElementError{Code: CodeFamilyTypeMissing, Message: "activating " + symbol.Name, Err: err})
			return
		}
		activated[symbol.ID] = true
	}

	mid := conv.Point(o.Midpoint())
	host, ok := NearestWall(walls, mid)
	if !ok {
		report.failed(KindOpening, o.ID, unboundPass, InvalidElementID,
			&ElementError{Code: CodeNoHostWall, Message: "no wall to host opening"})
		return
	}

	point := HostedPoint(host, mid, cfg.Openings.HostOffset)
	id, err := doc.CreateHostedInstance(point, symbol.ID, host.ID, StructuralNone)
	if err != nil {
		report.failed(KindOpening, o.ID, unboundPass, InvalidElementID,
			&ElementError{Code: CodePlacementFailed, Message: "placing opening", Silent: true, Err: err})
		return
	}
	report.created(KindOpening, o.ID, unboundPass, id)
}
