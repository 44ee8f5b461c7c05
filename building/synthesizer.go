package building

import (
	"errors"
	"fmt"
)

// ErrNoColumnType is fatal: columns exist but no column family is loaded.
var ErrNoColumnType = errors.New("no structural column type in document")

// unboundPass marks results not tied to a floor pass.
const unboundPass = -1

// synthesizer creates walls, floors, columns and beams inside the building
// elements transaction.
type synthesizer struct {
	doc    Document
	conv   UnitConverter
	cfg    *Config
	levels *LevelSet
	report *Report
}

// buildFloors runs one pass per floor: the floor itself, then every wall
// bound to that pass. Roof walls are only created on the last pass.
func (s *synthesizer) buildFloors(model *BuildingModel) {
	floors := model.Components.Floors
	for i, f := range floors {
		s.createFloor(f, i)
		last := i == len(floors)-1
		for _, w := range model.Components.Walls {
			switch w.Kind {
			case WallRoof:
				if last {
					s.createRoofWall(w, i)
				}
			default:
				s.createStandardWall(w, i)
			}
		}
	}
}

func (s *synthesizer) createFloor(f FloorSpec, pass int) {
	level, err := s.levels.Resolve(pass)
	if err != nil {
		s.report.failed(KindFloor, f.ID, pass, InvalidElementID,
			&ElementError{Code: CodeLevelNotFound, Message: "no level for floor", Err: err})
		return
	}
	floorType, ok, err := FirstType(s.doc, CategoryFloorType)
	if err == nil && !ok {
		err = ErrTypeNotFound
	}
	if err != nil {
		s.report.failed(KindFloor, f.ID, pass, InvalidElementID,
			&ElementError{Code: CodeFamilyTypeMissing, Message: "no floor type", Err: err})
		return
	}

	boundary, err := BuildLoop(s.conv.Points(f.Vertices)).OffsetOutward(s.conv.ToInternal(s.cfg.Floors.BoundaryOffset))
	if err != nil {
		s.report.failed(KindFloor, f.ID, pass, InvalidElementID,
			&ElementError{Code: CodeCreationFailed, Message: "offsetting floor boundary", Err: err})
		return
	}
	id, err := s.doc.CreateFloor([]CurveLoop{boundary}, floorType.ID, level.ID)
	if err != nil {
		s.report.failed(KindFloor, f.ID, pass, InvalidElementID,
			&ElementError{Code: CodeCreationFailed, Message: "creating floor", Err: err})
		return
	}
	s.report.created(KindFloor, f.ID, pass, id)
}

func (s *synthesizer) createStandardWall(w WallSpec, pass int) {
	level, err := s.levels.Resolve(pass)
	if err != nil {
		s.report.failed(KindWall, w.ID, pass, InvalidElementID,
			&ElementError{Code: CodeLevelNotFound, Message: "no level for wall", Err: err})
		return
	}
	s.createWall(w, pass, level)
}

func (s *synthesizer) createRoofWall(w WallSpec, pass int) {
	level, ok, err := s.levels.SecondHighest()
	if err == nil && !ok {
		err = ErrNoLevels
	}
	if err != nil {
		s.report.failed(KindWall, w.ID, pass, InvalidElementID,
			&ElementError{Code: CodeLevelNotFound, Message: "roof wall needs a second-highest level", Err: err})
		return
	}
	s.createWall(w, pass, level)
}

// createWall creates the wall with the default type, sets its height and key
// reference, then switches it to the configured named type. A missing named
// type leaves the default-typed wall in place.
func (s *synthesizer) createWall(w WallSpec, pass int, level Level) {
	defaultType, ok, err := FirstType(s.doc, CategoryWallType)
	if err == nil && !ok {
		err = ErrTypeNotFound
	}
	if err != nil {
		s.report.failed(KindWall, w.ID, pass, InvalidElementID,
			&ElementError{Code: CodeWallTypeNotFound, Message: "no wall type", Err: err})
		return
	}

	profile := BuildLoop(s.conv.Points(w.Vertices))
	id, err := s.doc.CreateWall(profile, defaultType.ID, level.ID, s.cfg.Walls.Structural)
	if err != nil {
		s.report.failed(KindWall, w.ID, pass, InvalidElementID,
			&ElementError{Code: CodeCreationFailed, Message: "creating wall", Err: err})
		return
	}
	if err := s.doc.SetParameter(id, ParamUserHeight, s.conv.ToInternal(s.cfg.Walls.Height)); err != nil {
		s.report.failed(KindWall, w.ID, pass, id,
			&ElementError{Code: CodeCreationFailed, Message: "setting wall height", Err: err})
		return
	}
	if err := s.doc.SetParameter(id, ParamKeyRef, s.cfg.Walls.KeyReference); err != nil {
		s.report.failed(KindWall, w.ID, pass, id,
			&ElementError{Code: CodeCreationFailed, Message: "setting key reference", Err: err})
		return
	}

	named, ok, err := TypeByName(s.doc, CategoryWallType, s.cfg.Walls.TypeName)
	if err == nil && !ok {
		err = fmt.Errorf("%q: %w", s.cfg.Walls.TypeName, ErrTypeNotFound)
	}
	if err != nil {
		s.report.failed(KindWall, w.ID, pass, id,
			&ElementError{Code: CodeWallTypeNotFound, Message: "wall type " + s.cfg.Walls.TypeName + " not found", Err: err})
		return
	}
	if err := s.doc.ChangeType(id, named.ID); err != nil {
		s.report.failed(KindWall, w.ID, pass, id,
			&ElementError{Code: CodeCreationFailed, Message: "changing wall type", Err: err})
		return
	}
	s.report.created(KindWall, w.ID, pass, id)
}

// buildColumns places every column on the first document level with the
// first column family. A missing column family or level is fatal for the
// run, even when the model has no columns.
func (s *synthesizer) buildColumns(columns []ColumnSpec) error {
	symbol, ok, err := FirstType(s.doc, CategoryStructuralColumn)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoColumnType
	}
	level, err := s.levels.First()
	if err != nil {
		return err
	}
	if err := EnsureActive(s.doc, symbol); err != nil {
		return err
	}

	for _, c := range columns {
		axis := Segment{Start: s.conv.Point(c.StartPoint), End: s.conv.Point(c.EndPoint)}
		id, err := s.doc.CreateLineInstance(axis, symbol.ID, level.ID, StructuralColumn)
		if err != nil {
			s.report.failed(KindColumn, c.ID, unboundPass, InvalidElementID,
				&ElementError{Code: CodeCreationFailed, Message: "creating column", Err: err})
			continue
		}
		s.report.created(KindColumn, c.ID, unboundPass, id)
	}
	return nil
}

// buildBeams places beams like columns but every precondition is per beam.
func (s *synthesizer) buildBeams(beams []BeamSpec) {
	if len(beams) == 0 {
		return
	}
	fail := func(b BeamSpec, id ElementID, code, msg string, err error) {
		s.report.failed(KindBeam, b.ID, unboundPass, id, &ElementError{Code: code, Message: msg, Err: err})
	}

	symbol, ok, err := FirstType(s.doc, CategoryStructuralFrame)
	if err == nil && !ok {
		err = ErrTypeNotFound
	}
	if err == nil {
		err = EnsureActive(s.doc, symbol)
	}
	if err != nil {
		for _, b := range beams {
			fail(b, InvalidElementID, CodeFamilyTypeMissing, "no structural framing type", err)
		}
		return
	}
	level, err := s.levels.First()
	if err != nil {
		for _, b := range beams {
			fail(b, InvalidElementID, CodeLevelNotFound, "no level for beam", err)
		}
		return
	}

	for _, b := range beams {
		axis := Segment{Start: s.conv.Point(b.StartPoint), End: s.conv.Point(b.EndPoint)}
		id, err := s.doc.CreateLineInstance(axis, symbol.ID, level.ID, StructuralBeam)
		if err != nil {
			fail(b, InvalidElementID, CodeCreationFailed, "creating beam", err)
			continue
		}
		if err := s.doc.SetParameter(id, ParamMark, b.ID); err != nil {
			fail(b, id, CodeCreationFailed, "setting beam mark", err)
			continue
		}
		s.report.created(KindBeam, b.ID, unboundPass, id)
	}
}
