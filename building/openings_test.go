package building

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func meters(t *testing.T) UnitConverter {
	t.Helper()
	c, err := NewUnitConverter(UnitMeters)
	require.NoError(t, err)
	return c
}

func wallElement(id ElementID, x0, y0, x1, y1 float64) Element {
	return Element{
		ID:       id,
		Kind:     KindWall,
		Location: &Segment{Start: r3.Vec{X: x0, Y: y0}, End: r3.Vec{X: x1, Y: y1}},
	}
}

func TestNearestWall(t *testing.T) {
	walls := []Element{
		wallElement(1, 0, 0, 10, 0),
		wallElement(2, 10, 0, 10, 10),
		wallElement(3, 0, 0, 10, 0), // duplicate of 1
		{ID: 4, Kind: KindWall},     // no location line
	}

	tests := []struct {
		name   string
		p      r3.Vec
		wantID ElementID
	}{
		{"near south", r3.Vec{X: 5, Y: 1}, 1},
		{"near east", r3.Vec{X: 9.5, Y: 5}, 2},
		{"tie keeps first", r3.Vec{X: 3, Y: -2}, 1},
		{"corner tie keeps first", r3.Vec{X: 11, Y: -1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := NearestWall(walls, tt.p)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, w.ID)
		})
	}

	_, ok := NearestWall(nil, r3.Vec{})
	assert.False(t, ok)
	_, ok = NearestWall([]Element{{ID: 9, Kind: KindWall}}, r3.Vec{})
	assert.False(t, ok)
}

func TestHostedPoint(t *testing.T) {
	tests := []struct {
		name string
		wall Element
		want r3.Vec
	}{
		{"east-running wall", wallElement(1, 0, 0, 10, 0), r3.Vec{X: 5, Y: -0.5}},
		{"west-running wall", wallElement(1, 10, 0, 0, 0), r3.Vec{X: 5, Y: 0.5}},
		{"north-running wall", wallElement(1, 0, 0, 0, 10), r3.Vec{X: 5.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HostedPoint(tt.wall, r3.Vec{X: 5}, 0.5)
			assert.True(t, vecAlmostEqual(tt.want, got), "got %v, want %v", got, tt.want)
		})
	}
}

// singleWallDoc returns a committed document with one 4 m wall along +X.
func singleWallDoc(t *testing.T, catalog []ElementType) (*MemoryDocument, ElementID) {
	t.Helper()
	doc := NewMemoryDocument(catalog)
	var wall ElementID
	require.NoError(t, InTransaction(doc, "setup", func() error {
		level, err := doc.CreateLevel("Level 1", 0)
		if err != nil {
			return err
		}
		wt, _, err := FirstType(doc, CategoryWallType)
		if err != nil {
			return err
		}
		wall, err = doc.CreateWall(wallProfile(0, 0, 4, 0, 0, 3), wt.ID, level.ID, false)
		return err
	}))
	return doc, wall
}

func TestPlaceOpenings_NearCenterline(t *testing.T) {
	doc, wall := singleWallDoc(t, DefaultCatalog())
	report := NewReport("single")
	opening := OpeningSpec{ID: "win", Type: OpeningWindow, Vertices: []Vertex{
		{X: 1, Y: 0.005}, {X: 2, Y: 0.005}, {X: 2, Y: 0.005}, {X: 1, Y: 0.005},
	}}

	require.NoError(t, PlaceOpenings(doc, []OpeningSpec{opening}, meters(t), DefaultConfig(), report))

	openings := elementsOf(t, doc, KindOpening)
	require.Len(t, openings, 1)
	assert.Equal(t, wall, openings[0].HostID)
	assert.Equal(t, StructuralNone, openings[0].Structural)
	want := r3.Vec{X: 1.5, Y: 0.005 - 0.5}
	assert.True(t, vecAlmostEqual(want, *openings[0].Point), "got %v, want %v", *openings[0].Point, want)
	assert.True(t, report.OK())
}

func TestPlaceOpenings_Conditions(t *testing.T) {
	outside := OpeningSpec{ID: "far", Type: OpeningDoor, Vertices: []Vertex{
		{X: 9}, {X: 10}, {X: 10, Z: 2}, {X: 9, Z: 2},
	}}
	inside := OpeningSpec{ID: "near", Type: OpeningWindow, Vertices: []Vertex{
		{X: 1}, {X: 2}, {X: 2, Z: 1}, {X: 1, Z: 1},
	}}

	t.Run("placement failure is silent", func(t *testing.T) {
		doc, _ := singleWallDoc(t, DefaultCatalog())
		report := NewReport("b")
		require.NoError(t, PlaceOpenings(doc, []OpeningSpec{outside, inside}, meters(t), DefaultConfig(), report))

		assert.Len(t, elementsOf(t, doc, KindOpening), 1, "sibling opening still placed")
		assert.True(t, report.OK(), "silent failures are not surfaced")
		require.Len(t, report.Results, 2)
		require.NotNil(t, report.Results[0].Err)
		assert.Equal(t, CodePlacementFailed, report.Results[0].Err.Code)
		assert.True(t, report.Results[0].Err.Silent)
		assert.ErrorIs(t, report.Results[0].Err, ErrOutsideHost)
	})

	t.Run("no walls", func(t *testing.T) {
		doc := NewMemoryDocument(DefaultCatalog())
		report := NewReport("b")
		require.NoError(t, PlaceOpenings(doc, []OpeningSpec{inside}, meters(t), DefaultConfig(), report))

		conds := report.Conditions()
		require.Len(t, conds, 1)
		assert.Equal(t, CodeNoHostWall, conds[0].Err.Code)
	})

	t.Run("missing door family", func(t *testing.T) {
		catalog := []ElementType{
			{Name: "Wall", Category: CategoryWallType},
			{Name: "Window", Category: CategoryWindow},
		}
		doc, _ := singleWallDoc(t, catalog)
		report := NewReport("b")
		require.NoError(t, PlaceOpenings(doc, []OpeningSpec{outside, inside}, meters(t), DefaultConfig(), report))

		// a missing family skips the opening without flagging the run
		assert.Empty(t, report.Conditions())
		assert.True(t, report.OK(), report.Summary())
		var far *ElementResult
		for i := range report.Results {
			if report.Results[i].SpecID == "far" {
				far = &report.Results[i]
			}
		}
		require.NotNil(t, far)
		require.NotNil(t, far.Err)
		assert.Equal(t, CodeFamilyTypeMissing, far.Err.Code)
		assert.True(t, far.Err.Silent)
		assert.ErrorIs(t, far.Err, ErrTypeNotFound)

		// the inactive window family was activated for the sibling
		assert.Len(t, elementsOf(t, doc, KindOpening), 1)
		assert.True(t, mustType(t, doc, CategoryWindow).Active)
	})

	t.Run("no opening families at all", func(t *testing.T) {
		doc, _ := singleWallDoc(t, []ElementType{{Name: "Wall", Category: CategoryWallType}})
		report := NewReport("b")
		require.NoError(t, PlaceOpenings(doc, []OpeningSpec{outside, inside}, meters(t), DefaultConfig(), report))

		conds := report.Conditions()
		require.Len(t, conds, 1)
		assert.Equal(t, CodeNoOpeningTypes, conds[0].Err.Code)
		assert.Empty(t, elementsOf(t, doc, KindOpening))
	})
}

func TestPlaceOpenings_NothingToDo(t *testing.T) {
	doc := NewMemoryDocument(nil)
	report := NewReport("b")
	require.NoError(t, PlaceOpenings(doc, nil, meters(t), DefaultConfig(), report))
	assert.Empty(t, report.Results)
}
