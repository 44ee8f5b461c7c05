package building

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SplitComponents writes walls.json and floors.json into dir, in that order,
// each an object keyed by element id. A later duplicate id overwrites an
// earlier one. Wall kinds derived from the id are left out so the files
// carry only what the input had.
func SplitComponents(model *BuildingModel, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating split directory: %w", err)
	}

	walls := make(map[string]WallSpec, len(model.Components.Walls))
	for _, w := range model.Components.Walls {
		if w.kindDerived {
			w.Kind = ""
		}
		walls[w.ID] = w
	}
	floors := make(map[string]FloorSpec, len(model.Components.Floors))
	for _, f := range model.Components.Floors {
		floors[f.ID] = f
	}

	files := []struct {
		name string
		v    any
	}{
		{"walls.json", walls},
		{"floors.json", floors},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		data, err := json.MarshalIndent(f.v, "", "    ")
		if err != nil {
			return written, fmt.Errorf("marshaling %s: %w", f.name, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
