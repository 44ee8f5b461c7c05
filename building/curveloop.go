package building

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r3"
)

// segmentTolerance is the shortest segment a document accepts, in internal units.
const segmentTolerance = 1e-9

var (
	// ErrZeroLengthSegment is returned by documents for coincident endpoints.
	ErrZeroLengthSegment = errors.New("zero-length segment")
	// ErrDegenerateLoop means a loop cannot be offset.
	ErrDegenerateLoop = errors.New("degenerate curve loop")
)

// Segment is a bounded line.
type Segment struct {
	Start r3.Vec `json:"start"`
	End   r3.Vec `json:"end"`
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return r3.Norm(r3.Sub(s.End, s.Start))
}

// Direction returns the unit direction from Start to End.
func (s Segment) Direction() r3.Vec {
	return r3.Unit(r3.Sub(s.End, s.Start))
}

// Param returns the unclamped parameter of p's projection onto the segment line,
// 0 at Start and 1 at End.
func (s Segment) Param(p r3.Vec) float64 {
	d := r3.Sub(s.End, s.Start)
	lsq := r3.Dot(d, d)
	if lsq == 0 {
		return 0
	}
	return r3.Dot(r3.Sub(p, s.Start), d) / lsq
}

// Distance returns the minimum distance from p to the segment.
func (s Segment) Distance(p r3.Vec) float64 {
	t := math.Max(0, math.Min(1, s.Param(p)))
	closest := r3.Add(s.Start, r3.Scale(t, r3.Sub(s.End, s.Start)))
	return r3.Norm(r3.Sub(p, closest))
}

// CurveLoop is a closed chain of segments; segment i ends where i+1 starts.
type CurveLoop []Segment

// BuildLoop connects points[i] to points[(i+1) mod n].
// Coincident consecutive points are kept; documents reject the resulting
// zero-length segment.
func BuildLoop(points []r3.Vec) CurveLoop {
	n := len(points)
	loop := make(CurveLoop, 0, n)
	for i := 0; i < n; i++ {
		loop = append(loop, Segment{Start: points[i], End: points[(i+1)%n]})
	}
	return loop
}

// Vertices returns the start point of every segment, reconstructing the ring.
func (l CurveLoop) Vertices() []r3.Vec {
	out := make([]r3.Vec, len(l))
	for i, s := range l {
		out[i] = s.Start
	}
	return out
}

// Validate reports the first segment shorter than the document tolerance.
func (l CurveLoop) Validate() error {
	for _, s := range l {
		if s.Length() < segmentTolerance {
			return ErrZeroLengthSegment
		}
	}
	return nil
}

// ring projects the loop onto the XY plane as a closed orb ring.
func (l CurveLoop) ring() orb.Ring {
	r := make(orb.Ring, 0, len(l)+1)
	for _, s := range l {
		r = append(r, orb.Point{s.Start.X, s.Start.Y})
	}
	if len(r) > 0 {
		r = append(r, r[0])
	}
	return r
}

// Area returns the enclosed area of the loop's XY projection.
func (l CurveLoop) Area() float64 {
	if len(l) < 3 {
		return 0
	}
	return math.Abs(planar.Area(l.ring()))
}

// Bound returns the XY bounding box of the loop.
func (l CurveLoop) Bound() orb.Bound {
	return l.ring().Bound()
}

// OffsetOutward displaces every edge of a horizontal loop by distance along its
// outward in-plane normal (the plane normal is the vertical axis) and rejoins
// consecutive edges at their intersections. A negative distance shrinks the loop.
func (l CurveLoop) OffsetOutward(distance float64) (CurveLoop, error) {
	n := len(l)
	if n < 3 {
		return nil, ErrDegenerateLoop
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	// dir × up points to the right of travel, outward for counter-clockwise rings.
	sign := 1.0
	switch l.ring().Orientation() {
	case orb.CCW:
		sign = 1
	case orb.CW:
		sign = -1
	default:
		return nil, ErrDegenerateLoop
	}

	shifted := make([]Segment, n)
	for i, s := range l {
		normal := r3.Scale(sign*distance, r3.Unit(r3.Cross(s.Direction(), up)))
		shifted[i] = Segment{Start: r3.Add(s.Start, normal), End: r3.Add(s.End, normal)}
	}

	points := make([]r3.Vec, n)
	for i := range shifted {
		prev := shifted[(i+n-1)%n]
		p, ok := intersectXY(prev, shifted[i])
		if !ok {
			// Collinear neighbours share the shifted vertex; a reversal has no offset.
			if r3.Dot(prev.Direction(), shifted[i].Direction()) <= 0 {
				return nil, ErrDegenerateLoop
			}
			p = shifted[i].Start
		}
		p.Z = l[i].Start.Z
		points[i] = p
	}
	return BuildLoop(points), nil
}

// intersectXY intersects the infinite XY lines through a and b.
func intersectXY(a, b Segment) (r3.Vec, bool) {
	d1 := r3.Sub(a.End, a.Start)
	d2 := r3.Sub(b.End, b.Start)
	den := d1.X*d2.Y - d1.Y*d2.X
	if math.Abs(den) < 1e-12 {
		return r3.Vec{}, false
	}
	w := r3.Sub(b.Start, a.Start)
	t := (w.X*d2.Y - w.Y*d2.X) / den
	return r3.Add(a.Start, r3.Scale(t, d1)), true
}

// LocationLine returns the base edge of a wall profile: the segment joining the
// two lowest vertices, in loop order. A two-point loop yields its first segment.
func (l CurveLoop) LocationLine() (Segment, bool) {
	if len(l) == 0 {
		return Segment{}, false
	}
	if len(l) <= 2 {
		return l[0], true
	}
	pts := l.Vertices()
	first, second := -1, -1
	for i, p := range pts {
		switch {
		case first < 0 || p.Z < pts[first].Z:
			first, second = i, first
		case second < 0 || p.Z < pts[second].Z:
			second = i
		}
	}
	if first > second {
		first, second = second, first
	}
	return Segment{Start: pts[first], End: pts[second]}, true
}
