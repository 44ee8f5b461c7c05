package building

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitComponents(t *testing.T) {
	model, err := ParseModelJSON([]byte(sampleBuildingJSON))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "split")
	paths, err := SplitComponents(model, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "walls.json"), filepath.Join(dir, "floors.json")}, paths)

	data, err := os.ReadFile(filepath.Join(dir, "walls.json"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n    \""), "four-space indentation")

	var walls map[string]WallSpec
	require.NoError(t, json.Unmarshal(data, &walls))
	assert.Len(t, walls, len(model.Components.Walls))
	for _, w := range model.Components.Walls {
		assert.Equal(t, w.Vertices, walls[w.ID].Vertices)
	}

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	tests := []struct {
		id       string
		wantKind string
	}{
		{"wall_1", ""},
		{"penthouse_wall_1", ""},
		{"penthouse_but_standard", `"standard"`},
		{"parapet", `"roof"`},
	}
	for _, tt := range tests {
		kind, ok := raw[tt.id]["kind"]
		if tt.wantKind == "" {
			assert.False(t, ok, "%s: kind not in input", tt.id)
			continue
		}
		assert.Equal(t, tt.wantKind, string(kind), tt.id)
	}

	data, err = os.ReadFile(filepath.Join(dir, "floors.json"))
	require.NoError(t, err)
	var floors map[string]FloorSpec
	require.NoError(t, json.Unmarshal(data, &floors))
	assert.Len(t, floors, len(model.Components.Floors))
}

func TestSplitComponents_DuplicateIDs(t *testing.T) {
	model := &BuildingModel{Components: Components{
		Walls: []WallSpec{
			{ID: "w", Vertices: []Vertex{{X: 0}, {X: 1}}},
			{ID: "w", Vertices: []Vertex{{X: 5}, {X: 6}}},
		},
	}}
	dir := t.TempDir()
	_, err := SplitComponents(model, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "walls.json"))
	require.NoError(t, err)
	var walls map[string]WallSpec
	require.NoError(t, json.Unmarshal(data, &walls))
	require.Len(t, walls, 1)
	assert.Equal(t, 5.0, walls["w"].Vertices[0].X, "later duplicate wins")

	data, err = os.ReadFile(filepath.Join(dir, "floors.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(data))
}
