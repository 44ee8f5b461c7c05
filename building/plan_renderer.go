package building

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	floorFill   = color.RGBA{R: 225, G: 225, B: 225, A: 255}
	wallStroke  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	columnFill  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	beamStroke  = color.RGBA{R: 70, G: 110, B: 170, A: 255}
	windowFill  = color.RGBA{R: 60, G: 150, B: 220, A: 255}
	openingFill = color.RGBA{R: 200, G: 120, B: 40, A: 255}
)

// PlanRenderer draws the elements of one level as a top-down plan.
type PlanRenderer struct {
	Doc        Document
	Level      Level
	Scale      float64           // drawing millimeters per internal unit
	Padding    float64           // drawing millimeters around the plan
	WallWidth  float64           // stroke width of wall location lines, in mm
	Resolution canvas.Resolution // PNG output only
}

// NewPlanRenderer creates a plan renderer with default settings
func NewPlanRenderer(doc Document, level Level) *PlanRenderer {
	return &PlanRenderer{
		Doc:        doc,
		Level:      level,
		Scale:      10,
		Padding:    20,
		WallWidth:  2,
		Resolution: canvas.DPI(150),
	}
}

// canvasRenderer is implemented by both the svg and rasterizer renderers
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// planElements are the elements bound to the rendered level.
type planElements struct {
	floors, walls, columns, beams, openings []Element
	openingTypes                            map[ElementID]Category
}

func (r *PlanRenderer) collect() (*planElements, error) {
	pe := &planElements{openingTypes: make(map[ElementID]Category)}
	targets := []struct {
		kind ElementKind
		dst  *[]Element
	}{
		{KindFloor, &pe.floors},
		{KindWall, &pe.walls},
		{KindColumn, &pe.columns},
		{KindBeam, &pe.beams},
		{KindOpening, &pe.openings},
	}
	for _, t := range targets {
		els, err := r.Doc.Elements(t.kind)
		if err != nil {
			return nil, fmt.Errorf("listing %s elements: %w", t.kind, err)
		}
		for _, e := range els {
			if e.LevelID == r.Level.ID {
				*t.dst = append(*t.dst, e)
			}
		}
	}
	windows, err := r.Doc.Types(CategoryWindow)
	if err != nil {
		return nil, err
	}
	for _, t := range windows {
		pe.openingTypes[t.ID] = CategoryWindow
	}
	return pe, nil
}

// bound covers every drawn point; an empty level gets a unit square.
func (pe *planElements) bound() orb.Bound {
	var b orb.Bound
	first := true
	extend := func(p orb.Point) {
		if first {
			b = orb.Bound{Min: p, Max: p}
			first = false
			return
		}
		b = b.Extend(p)
	}
	for _, group := range [][]Element{pe.floors, pe.walls} {
		for _, e := range group {
			for _, l := range e.Loops {
				lb := l.Bound()
				extend(lb.Min)
				extend(lb.Max)
			}
		}
	}
	for _, group := range [][]Element{pe.columns, pe.beams} {
		for _, e := range group {
			if e.Location != nil {
				extend(orb.Point{e.Location.Start.X, e.Location.Start.Y})
				extend(orb.Point{e.Location.End.X, e.Location.End.Y})
			}
		}
	}
	for _, e := range pe.openings {
		if e.Point != nil {
			extend(orb.Point{e.Point.X, e.Point.Y})
		}
	}
	if first {
		return orb.Bound{Max: orb.Point{1, 1}}
	}
	return b
}

func (r *PlanRenderer) size(b orb.Bound) (float64, float64) {
	return (b.Max[0]-b.Min[0])*r.Scale + 2*r.Padding, (b.Max[1]-b.Min[1])*r.Scale + 2*r.Padding
}

// RenderToSVG writes the plan as an SVG to the provided writer
func (r *PlanRenderer) RenderToSVG(w io.Writer) error {
	pe, err := r.collect()
	if err != nil {
		return err
	}
	b := pe.bound()
	width, height := r.size(b)

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, pe, b, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the plan as a PNG with the level name as caption
func (r *PlanRenderer) RenderToPNG(w io.Writer) error {
	pe, err := r.collect()
	if err != nil {
		return err
	}
	b := pe.bound()
	width, height := r.size(b)

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, pe, b, width, height)

	img := image.NewRGBA(rast.Bounds())
	draw.Draw(img, img.Bounds(), rast, rast.Bounds().Min, draw.Src)
	caption := fmt.Sprintf("%s (%.2f)", r.Level.Name, r.Level.Elevation)
	drawText(img, 6, 16, caption, color.RGBA{0, 0, 0, 255})
	return png.Encode(w, img)
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func (r *PlanRenderer) renderToCanvas(renderer canvasRenderer, pe *planElements, b orb.Bound, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(x, y float64) (float64, float64) {
		return (x-b.Min[0])*r.Scale + r.Padding, (y-b.Min[1])*r.Scale + r.Padding
	}
	loopPath := func(l CurveLoop) *canvas.Path {
		cp := &canvas.Path{}
		for i, s := range l {
			cx, cy := toCanvas(s.Start.X, s.Start.Y)
			if i == 0 {
				cp.MoveTo(cx, cy)
			} else {
				cp.LineTo(cx, cy)
			}
		}
		cp.Close()
		return cp
	}
	linePath := func(s Segment) *canvas.Path {
		cp := &canvas.Path{}
		x1, y1 := toCanvas(s.Start.X, s.Start.Y)
		x2, y2 := toCanvas(s.End.X, s.End.Y)
		cp.MoveTo(x1, y1)
		cp.LineTo(x2, y2)
		return cp
	}

	floorStyle := canvas.DefaultStyle
	floorStyle.Fill = canvas.Paint{Color: floorFill}
	floorStyle.Stroke = canvas.Paint{Color: canvas.Gray}
	floorStyle.StrokeWidth = 0.5
	for _, f := range pe.floors {
		for _, l := range f.Loops {
			renderer.RenderPath(loopPath(l), floorStyle, canvas.Identity)
		}
	}

	beamStyle := canvas.DefaultStyle
	beamStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	beamStyle.Stroke = canvas.Paint{Color: beamStroke}
	beamStyle.StrokeWidth = r.WallWidth / 2
	beamStyle.Dashes = []float64{4, 2}
	for _, e := range pe.beams {
		if e.Location != nil {
			renderer.RenderPath(linePath(*e.Location), beamStyle, canvas.Identity)
		}
	}

	wallStyle := canvas.DefaultStyle
	wallStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	wallStyle.Stroke = canvas.Paint{Color: wallStroke}
	wallStyle.StrokeWidth = r.WallWidth
	for _, e := range pe.walls {
		if e.Location != nil {
			renderer.RenderPath(linePath(*e.Location), wallStyle, canvas.Identity)
		}
	}

	columnStyle := canvas.DefaultStyle
	columnStyle.Fill = canvas.Paint{Color: columnFill}
	columnStyle.Stroke = canvas.Paint{Color: canvas.Black}
	columnStyle.StrokeWidth = 0.3
	side := 2 * r.WallWidth
	for _, e := range pe.columns {
		if e.Location == nil {
			continue
		}
		cx, cy := toCanvas(e.Location.Start.X, e.Location.Start.Y)
		renderer.RenderPath(canvas.Rectangle(side, side).Translate(cx-side/2, cy-side/2), columnStyle, canvas.Identity)
	}

	for _, e := range pe.openings {
		if e.Point == nil {
			continue
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: openingFill}
		if pe.openingTypes[e.TypeID] == CategoryWindow {
			style.Fill = canvas.Paint{Color: windowFill}
		}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}
		cx, cy := toCanvas(e.Point.X, e.Point.Y)
		renderer.RenderPath(canvas.Circle(r.WallWidth).Translate(cx, cy), style, canvas.Identity)
	}
}
