package building

import (
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// MemoryDocument is an in-process Document. Transactions snapshot the whole
// state on Begin and restore it on Rollback.
type MemoryDocument struct {
	nextID   ElementID
	levels   []Level
	types    []ElementType
	elements []Element
	params   map[ElementID]map[string]any

	tx *memoryTx
}

type memorySnapshot struct {
	nextID   ElementID
	levels   []Level
	types    []ElementType
	elements []Element
	params   map[ElementID]map[string]any
}

// NewMemoryDocument returns an empty document seeded with the given types.
// Types are seeded outside any transaction, as a template would provide them.
func NewMemoryDocument(catalog []ElementType) *MemoryDocument {
	d := &MemoryDocument{
		nextID: 1,
		params: make(map[ElementID]map[string]any),
	}
	for _, t := range catalog {
		t.ID = d.allocID()
		d.types = append(d.types, t)
	}
	return d
}

func (d *MemoryDocument) allocID() ElementID {
	id := d.nextID
	d.nextID++
	return id
}

func (d *MemoryDocument) snapshot() memorySnapshot {
	params := make(map[ElementID]map[string]any, len(d.params))
	for id, p := range d.params {
		params[id] = maps.Clone(p)
	}
	return memorySnapshot{
		nextID:   d.nextID,
		levels:   slices.Clone(d.levels),
		types:    slices.Clone(d.types),
		elements: slices.Clone(d.elements),
		params:   params,
	}
}

func (d *MemoryDocument) restore(s memorySnapshot) {
	d.nextID = s.nextID
	d.levels = s.levels
	d.types = s.types
	d.elements = s.elements
	d.params = s.params
}

type memoryTx struct {
	doc  *MemoryDocument
	name string
	snap memorySnapshot
	done bool
}

func (t *memoryTx) Name() string { return t.name }

func (t *memoryTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.doc.tx = nil
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.doc.restore(t.snap)
	t.doc.tx = nil
	return nil
}

// Begin implements Document.
func (d *MemoryDocument) Begin(name string) (Transaction, error) {
	if d.tx != nil {
		return nil, fmt.Errorf("begin %q while %q is open: %w", name, d.tx.name, ErrTransactionActive)
	}
	d.tx = &memoryTx{doc: d, name: name, snap: d.snapshot()}
	return d.tx, nil
}

func (d *MemoryDocument) writable() error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	return nil
}

// CreateLevel implements Document.
func (d *MemoryDocument) CreateLevel(name string, elevation float64) (Level, error) {
	if err := d.writable(); err != nil {
		return Level{}, err
	}
	l := Level{ID: d.allocID(), Name: name, Elevation: elevation}
	d.levels = append(d.levels, l)
	return l, nil
}

// Levels implements Document.
func (d *MemoryDocument) Levels() ([]Level, error) {
	return slices.Clone(d.levels), nil
}

func (d *MemoryDocument) hasLevel(id ElementID) bool {
	return slices.ContainsFunc(d.levels, func(l Level) bool { return l.ID == id })
}

// Types implements Document.
func (d *MemoryDocument) Types(category Category) ([]ElementType, error) {
	var out []ElementType
	for _, t := range d.types {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *MemoryDocument) typeByID(id ElementID) (ElementType, bool) {
	i := slices.IndexFunc(d.types, func(t ElementType) bool { return t.ID == id })
	if i < 0 {
		return ElementType{}, false
	}
	return d.types[i], true
}

// ActivateType implements Document.
func (d *MemoryDocument) ActivateType(id ElementID) error {
	if err := d.writable(); err != nil {
		return err
	}
	i := slices.IndexFunc(d.types, func(t ElementType) bool { return t.ID == id })
	if i < 0 {
		return fmt.Errorf("type %d: %w", id, ErrElementNotFound)
	}
	d.types[i].Active = true
	return nil
}

func (d *MemoryDocument) addElement(e Element) ElementID {
	e.ID = d.allocID()
	d.elements = append(d.elements, e)
	return e.ID
}

func (d *MemoryDocument) element(id ElementID) (int, bool) {
	i := slices.IndexFunc(d.elements, func(e Element) bool { return e.ID == id })
	return i, i >= 0
}

// CreateWall implements Document.
func (d *MemoryDocument) CreateWall(profile CurveLoop, wallType, level ElementID, structural bool) (ElementID, error) {
	if err := d.writable(); err != nil {
		return InvalidElementID, err
	}
	t, ok := d.typeByID(wallType)
	if err := expectCategory(t, ok, CategoryWallType); err != nil {
		return InvalidElementID, err
	}
	if !d.hasLevel(level) {
		return InvalidElementID, fmt.Errorf("level %d: %w", level, ErrElementNotFound)
	}
	if err := profile.Validate(); err != nil {
		return InvalidElementID, err
	}
	loc, ok := profile.LocationLine()
	if !ok {
		return InvalidElementID, ErrDegenerateLoop
	}
	kind := StructuralNone
	if structural {
		kind = StructuralBearing
	}
	return d.addElement(Element{
		Kind:       KindWall,
		LevelID:    level,
		TypeID:     wallType,
		Structural: kind,
		Loops:      []CurveLoop{slices.Clone(profile)},
		Location:   &loc,
	}), nil
}

// CreateFloor implements Document.
func (d *MemoryDocument) CreateFloor(loops []CurveLoop, floorType, level ElementID) (ElementID, error) {
	if err := d.writable(); err != nil {
		return InvalidElementID, err
	}
	t, ok := d.typeByID(floorType)
	if err := expectCategory(t, ok, CategoryFloorType); err != nil {
		return InvalidElementID, err
	}
	if !d.hasLevel(level) {
		return InvalidElementID, fmt.Errorf("level %d: %w", level, ErrElementNotFound)
	}
	if len(loops) == 0 {
		return InvalidElementID, ErrDegenerateLoop
	}
	stored := make([]CurveLoop, len(loops))
	for i, l := range loops {
		if len(l) < 3 {
			return InvalidElementID, ErrDegenerateLoop
		}
		if err := l.Validate(); err != nil {
			return InvalidElementID, err
		}
		stored[i] = slices.Clone(l)
	}
	return d.addElement(Element{
		Kind:    KindFloor,
		LevelID: level,
		TypeID:  floorType,
		Loops:   stored,
	}), nil
}

// CreateLineInstance implements Document.
func (d *MemoryDocument) CreateLineInstance(axis Segment, symbol, level ElementID, kind StructuralKind) (ElementID, error) {
	if err := d.writable(); err != nil {
		return InvalidElementID, err
	}
	t, ok := d.typeByID(symbol)
	if err := expectCategory(t, ok, CategoryStructuralColumn, CategoryStructuralFrame); err != nil {
		return InvalidElementID, err
	}
	if !d.hasLevel(level) {
		return InvalidElementID, fmt.Errorf("level %d: %w", level, ErrElementNotFound)
	}
	if axis.Length() < segmentTolerance {
		return InvalidElementID, ErrZeroLengthSegment
	}
	ek := KindColumn
	if kind == StructuralBeam {
		ek = KindBeam
	}
	return d.addElement(Element{
		Kind:       ek,
		LevelID:    level,
		TypeID:     symbol,
		Structural: kind,
		Location:   &axis,
	}), nil
}

// CreateHostedInstance implements Document.
func (d *MemoryDocument) CreateHostedInstance(point r3.Vec, symbol, host ElementID, kind StructuralKind) (ElementID, error) {
	if err := d.writable(); err != nil {
		return InvalidElementID, err
	}
	t, ok := d.typeByID(symbol)
	if err := expectCategory(t, ok, CategoryWindow, CategoryDoor); err != nil {
		return InvalidElementID, err
	}
	i, ok := d.element(host)
	if !ok {
		return InvalidElementID, fmt.Errorf("host %d: %w", host, ErrElementNotFound)
	}
	h := d.elements[i]
	if err := checkHosted(h, point); err != nil {
		return InvalidElementID, err
	}
	return d.addElement(Element{
		Kind:       KindOpening,
		LevelID:    h.LevelID,
		TypeID:     symbol,
		HostID:     host,
		Structural: kind,
		Point:      &point,
	}), nil
}

// ChangeType implements Document.
func (d *MemoryDocument) ChangeType(id, typeID ElementID) error {
	if err := d.writable(); err != nil {
		return err
	}
	i, ok := d.element(id)
	if !ok {
		return fmt.Errorf("element %d: %w", id, ErrElementNotFound)
	}
	if _, ok := d.typeByID(typeID); !ok {
		return fmt.Errorf("type %d: %w", typeID, ErrElementNotFound)
	}
	d.elements[i].TypeID = typeID
	return nil
}

// SetParameter implements Document.
func (d *MemoryDocument) SetParameter(id ElementID, name string, value any) error {
	if err := d.writable(); err != nil {
		return err
	}
	if _, ok := d.element(id); !ok {
		return fmt.Errorf("element %d: %w", id, ErrElementNotFound)
	}
	if d.params[id] == nil {
		d.params[id] = make(map[string]any)
	}
	d.params[id][name] = value
	return nil
}

// Parameter implements Document.
func (d *MemoryDocument) Parameter(id ElementID, name string) (any, bool, error) {
	if _, ok := d.element(id); !ok {
		return nil, false, fmt.Errorf("element %d: %w", id, ErrElementNotFound)
	}
	v, ok := d.params[id][name]
	return v, ok, nil
}

// Elements implements Document.
func (d *MemoryDocument) Elements(kind ElementKind) ([]Element, error) {
	var out []Element
	for _, e := range d.elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}
