package building

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNoDocument is fatal: the pipeline has nothing to write to.
	ErrNoDocument = errors.New("no host document")
	// ErrNoTransaction is returned for mutations outside Begin/Commit.
	ErrNoTransaction = errors.New("document modification outside a transaction")
	// ErrTransactionActive is returned by Begin while another transaction is open.
	ErrTransactionActive = errors.New("a transaction is already active")
	// ErrElementNotFound is returned for unknown element ids.
	ErrElementNotFound = errors.New("element not found")
	// ErrTypeInactive is returned when instantiating a type that was never activated.
	ErrTypeInactive = errors.New("element type is not active")
	// ErrWrongCategory is returned when a type does not fit the requested element.
	ErrWrongCategory = errors.New("element type has the wrong category")
	// ErrOutsideHost is returned when a hosted point falls outside its host wall.
	ErrOutsideHost = errors.New("insertion point outside host extent")
)

// Document is the host CAD document the pipeline writes into.
// Implementations are not safe for concurrent mutation.
type Document interface {
	// Begin opens a transaction; every mutation must happen inside one.
	Begin(name string) (Transaction, error)

	CreateLevel(name string, elevation float64) (Level, error)
	// Levels returns all levels in creation order.
	Levels() ([]Level, error)

	// Types returns the element types of a category in document order.
	Types(category Category) ([]ElementType, error)
	ActivateType(id ElementID) error

	CreateWall(profile CurveLoop, wallType, level ElementID, structural bool) (ElementID, error)
	CreateFloor(loops []CurveLoop, floorType, level ElementID) (ElementID, error)
	// CreateLineInstance places a curve-driven family instance (column, beam).
	CreateLineInstance(axis Segment, symbol, level ElementID, kind StructuralKind) (ElementID, error)
	// CreateHostedInstance places a point-based family instance hosted by a wall.
	CreateHostedInstance(point r3.Vec, symbol, host ElementID, kind StructuralKind) (ElementID, error)

	ChangeType(id, typeID ElementID) error
	SetParameter(id ElementID, name string, value any) error
	Parameter(id ElementID, name string) (any, bool, error)

	// Elements returns the elements of a kind in creation order.
	Elements(kind ElementKind) ([]Element, error)
}

// Transaction is a scoped unit of work. After Commit or Rollback further calls
// are no-ops returning nil.
type Transaction interface {
	Name() string
	Commit() error
	Rollback() error
}

// FirstType returns the first type of a category, or false.
func FirstType(doc Document, category Category) (ElementType, bool, error) {
	types, err := doc.Types(category)
	if err != nil {
		return ElementType{}, false, err
	}
	if len(types) == 0 {
		return ElementType{}, false, nil
	}
	return types[0], true, nil
}

// TypeByName returns the type of a category whose name matches exactly.
func TypeByName(doc Document, category Category, name string) (ElementType, bool, error) {
	types, err := doc.Types(category)
	if err != nil {
		return ElementType{}, false, err
	}
	for _, t := range types {
		if t.Name == name {
			return t, true, nil
		}
	}
	return ElementType{}, false, nil
}

// EnsureActive activates a type that is not yet active.
func EnsureActive(doc Document, t ElementType) error {
	if t.Active {
		return nil
	}
	if err := doc.ActivateType(t.ID); err != nil {
		return fmt.Errorf("activating type %q: %w", t.Name, err)
	}
	return nil
}

// checkHosted validates a hosted insertion against the host's location line.
func checkHosted(host Element, point r3.Vec) error {
	if host.Kind != KindWall || host.Location == nil {
		return fmt.Errorf("host %d is not a wall: %w", host.ID, ErrOutsideHost)
	}
	loc := *host.Location
	flat := Segment{
		Start: r3.Vec{X: loc.Start.X, Y: loc.Start.Y},
		End:   r3.Vec{X: loc.End.X, Y: loc.End.Y},
	}
	t := flat.Param(r3.Vec{X: point.X, Y: point.Y})
	if t < 0 || t > 1 {
		return ErrOutsideHost
	}
	return nil
}

// expectCategory checks that a type exists with the wanted category and,
// for family symbols, is active.
func expectCategory(t ElementType, ok bool, want ...Category) error {
	if !ok {
		return fmt.Errorf("type: %w", ErrElementNotFound)
	}
	for _, c := range want {
		if t.Category != c {
			continue
		}
		switch c {
		case CategoryWallType, CategoryFloorType:
			return nil
		}
		if !t.Active {
			return fmt.Errorf("%s: %w", t.Name, ErrTypeInactive)
		}
		return nil
	}
	return fmt.Errorf("%s is %s: %w", t.Name, t.Category, ErrWrongCategory)
}
