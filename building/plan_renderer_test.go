package building

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/tdewolff/canvas"
)

func builtDocument(t *testing.T) (*MemoryDocument, []Level) {
	t.Helper()
	doc := NewMemoryDocument(DefaultCatalog())
	if _, err := Run(doc, twoStoreyModel(), DefaultConfig()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	levels, err := doc.Levels()
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	return doc, levels
}

func TestPlanRenderer_RenderToSVG(t *testing.T) {
	doc, levels := builtDocument(t)
	r := NewPlanRenderer(doc, levels[0])

	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("Failed to render to SVG: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("<svg")) {
		t.Errorf("Output does not contain <svg tag")
	}
	if !bytes.Contains(buf.Bytes(), []byte("path")) {
		t.Errorf("Output does not contain path elements")
	}
}

func TestPlanRenderer_RenderToPNG(t *testing.T) {
	doc, levels := builtDocument(t)
	r := NewPlanRenderer(doc, levels[1])
	r.Resolution = canvas.DPI(72)

	var buf bytes.Buffer
	if err := r.RenderToPNG(&buf); err != nil {
		t.Fatalf("Failed to render to PNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Errorf("PNG has empty bounds %v", img.Bounds())
	}
}

func TestPlanRenderer_EmptyLevel(t *testing.T) {
	doc := NewMemoryDocument(DefaultCatalog())
	r := NewPlanRenderer(doc, Level{ID: 42, Name: "Empty"})

	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("Failed to render empty level: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("SVG output is empty")
	}
}

func TestPlanElements_Bound(t *testing.T) {
	doc, levels := builtDocument(t)
	r := NewPlanRenderer(doc, levels[0])
	pe, err := r.collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(pe.walls) != 4 || len(pe.floors) != 1 || len(pe.columns) != 4 || len(pe.openings) != 2 {
		t.Errorf("collected walls=%d floors=%d columns=%d openings=%d, want 4/1/4/2",
			len(pe.walls), len(pe.floors), len(pe.columns), len(pe.openings))
	}

	conv := feet(t)
	b := pe.bound()
	// the offset floor reaches 0.1 m beyond the walls
	if !almostEqual(b.Min[0], conv.ToInternal(-0.1)) || !almostEqual(b.Max[1], conv.ToInternal(10.1)) {
		t.Errorf("bound = %v", b)
	}
}
