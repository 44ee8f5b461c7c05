package building

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const epsilon = 1e-9

// almostEqual checks if two floats are equal within epsilon tolerance
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func vecAlmostEqual(a, b r3.Vec) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y) && almostEqual(a.Z, b.Z)
}

func square(size, z float64) []r3.Vec {
	return []r3.Vec{{X: 0, Y: 0, Z: z}, {X: size, Y: 0, Z: z}, {X: size, Y: size, Z: z}, {X: 0, Y: size, Z: z}}
}

func TestBuildLoop_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		points []r3.Vec
	}{
		{"triangle", []r3.Vec{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}}},
		{"square", square(10, 3)},
		{"pentagon", []r3.Vec{{X: 0, Y: 0}, {X: 2, Y: -1}, {X: 4, Y: 0}, {X: 3, Y: 3}, {X: 1, Y: 3}}},
		{"wall segment", []r3.Vec{{X: 0, Y: 0}, {X: 5, Y: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := BuildLoop(tt.points)
			n := len(tt.points)
			if len(loop) != n {
				t.Fatalf("len(loop) = %d, want %d", len(loop), n)
			}
			for i, s := range loop {
				if !vecAlmostEqual(s.Start, tt.points[i]) {
					t.Errorf("segment %d start = %v, want %v", i, s.Start, tt.points[i])
				}
				if !vecAlmostEqual(s.End, tt.points[(i+1)%n]) {
					t.Errorf("segment %d end = %v, want %v", i, s.End, tt.points[(i+1)%n])
				}
			}
			got := loop.Vertices()
			for i := range got {
				if !vecAlmostEqual(got[i], tt.points[i]) {
					t.Errorf("Vertices()[%d] = %v, want %v", i, got[i], tt.points[i])
				}
			}
		})
	}
}

func TestCurveLoop_Validate(t *testing.T) {
	ok := BuildLoop(square(1, 0))
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() on square = %v, want nil", err)
	}

	dup := BuildLoop([]r3.Vec{{X: 0}, {X: 0}, {X: 1, Y: 1}})
	if err := dup.Validate(); !errors.Is(err, ErrZeroLengthSegment) {
		t.Errorf("Validate() on coincident vertices = %v, want ErrZeroLengthSegment", err)
	}
}

func TestCurveLoop_Area(t *testing.T) {
	if got := BuildLoop(square(10, 0)).Area(); !almostEqual(got, 100) {
		t.Errorf("Area() = %v, want 100", got)
	}
	cw := []r3.Vec{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}
	if got := BuildLoop(cw).Area(); !almostEqual(got, 100) {
		t.Errorf("clockwise Area() = %v, want 100", got)
	}
	if got := BuildLoop([]r3.Vec{{X: 0}, {X: 1}}).Area(); got != 0 {
		t.Errorf("two-point Area() = %v, want 0", got)
	}
}

func TestOffsetOutward_GrowsConvexLoops(t *testing.T) {
	tests := []struct {
		name     string
		points   []r3.Vec
		wantArea float64
	}{
		{
			name:     "ccw square",
			points:   square(10, 0),
			wantArea: 10.2 * 10.2,
		},
		{
			name:     "cw square",
			points:   []r3.Vec{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}},
			wantArea: 10.2 * 10.2,
		},
		{
			name:     "rectangle at elevation",
			points:   []r3.Vec{{X: 0, Y: 0, Z: 3}, {X: 6, Y: 0, Z: 3}, {X: 6, Y: 4, Z: 3}, {X: 0, Y: 4, Z: 3}},
			wantArea: 6.2 * 4.2,
		},
		{
			name:     "collinear midpoint",
			points:   []r3.Vec{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
			wantArea: 10.2 * 10.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := BuildLoop(tt.points)
			off, err := loop.OffsetOutward(0.1)
			if err != nil {
				t.Fatalf("OffsetOutward: %v", err)
			}
			if len(off) != len(loop) {
				t.Fatalf("len(offset) = %d, want %d", len(off), len(loop))
			}
			if off.Area() <= loop.Area() {
				t.Errorf("offset area %v not larger than %v", off.Area(), loop.Area())
			}
			if math.Abs(off.Area()-tt.wantArea) > 1e-6 {
				t.Errorf("offset area = %v, want %v", off.Area(), tt.wantArea)
			}
			for i, v := range off.Vertices() {
				if v.Z != tt.points[i].Z {
					t.Errorf("vertex %d z = %v, want %v", i, v.Z, tt.points[i].Z)
				}
			}
		})
	}
}

func TestOffsetOutward_SquareCorners(t *testing.T) {
	off, err := BuildLoop(square(10, 0)).OffsetOutward(0.1)
	if err != nil {
		t.Fatalf("OffsetOutward: %v", err)
	}
	want := []r3.Vec{{X: -0.1, Y: -0.1}, {X: 10.1, Y: -0.1}, {X: 10.1, Y: 10.1}, {X: -0.1, Y: 10.1}}
	for i, v := range off.Vertices() {
		if !vecAlmostEqual(v, want[i]) {
			t.Errorf("corner %d = %v, want %v", i, v, want[i])
		}
	}
}

func TestOffsetOutward_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		points  []r3.Vec
		wantErr error
	}{
		{"two points", []r3.Vec{{X: 0}, {X: 1}}, ErrDegenerateLoop},
		{"collinear", []r3.Vec{{X: 0}, {X: 1}, {X: 2}}, ErrDegenerateLoop},
		{"coincident", []r3.Vec{{X: 0}, {X: 0}, {X: 1, Y: 1}}, ErrZeroLengthSegment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildLoop(tt.points).OffsetOutward(0.1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("OffsetOutward() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocationLine(t *testing.T) {
	profile := BuildLoop([]r3.Vec{{X: 0, Y: 0, Z: 3}, {X: 0, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 3}})
	loc, ok := profile.LocationLine()
	if !ok {
		t.Fatal("LocationLine() returned false")
	}
	if !vecAlmostEqual(loc.Start, r3.Vec{X: 0}) || !vecAlmostEqual(loc.End, r3.Vec{X: 4}) {
		t.Errorf("LocationLine() = %v -> %v, want (0,0,0) -> (4,0,0)", loc.Start, loc.End)
	}

	line := BuildLoop([]r3.Vec{{X: 1}, {X: 5}})
	loc, ok = line.LocationLine()
	if !ok || !vecAlmostEqual(loc.End, r3.Vec{X: 5}) {
		t.Errorf("two-point LocationLine() = %v, %v", loc, ok)
	}

	if _, ok := CurveLoop(nil).LocationLine(); ok {
		t.Error("empty LocationLine() should return false")
	}
}

func TestSegment_DistanceAndParam(t *testing.T) {
	s := Segment{Start: r3.Vec{X: 0}, End: r3.Vec{X: 10}}
	tests := []struct {
		name      string
		p         r3.Vec
		wantDist  float64
		wantParam float64
	}{
		{"on segment", r3.Vec{X: 5}, 0, 0.5},
		{"beside", r3.Vec{X: 2, Y: 3}, 3, 0.2},
		{"past end", r3.Vec{X: 13, Y: 4}, 5, 1.3},
		{"before start", r3.Vec{X: -3}, 3, -0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Distance(tt.p); !almostEqual(got, tt.wantDist) {
				t.Errorf("Distance() = %v, want %v", got, tt.wantDist)
			}
			if got := s.Param(tt.p); !almostEqual(got, tt.wantParam) {
				t.Errorf("Param() = %v, want %v", got, tt.wantParam)
			}
		})
	}
}
