package building

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrNoLevels is fatal: columns need at least one level in the document.
var ErrNoLevels = errors.New("no levels in document")

// defaultLevelName names the fallback level created when no level sits at
// elevation zero.
const defaultLevelName = "Default Level"

// LevelSet maps floor indexes to the levels created from them.
type LevelSet struct {
	doc      Document
	cfg      *Config
	levels   []Level
	fallback *Level
	// created is set when the fallback was added to the document by this set.
	created bool
}

// ResolveLevels creates one level per floor, in input order, inside a single
// transaction. Elevations are neither sorted nor deduplicated. Any failure
// rolls back the whole set.
func ResolveLevels(doc Document, floors []FloorSpec, conv UnitConverter, cfg *Config) (*LevelSet, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	set := &LevelSet{doc: doc, cfg: cfg}
	err := InTransaction(doc, "Create Levels", func() error {
		for i, f := range floors {
			l, err := doc.CreateLevel(cfg.LevelName(i+1), conv.ToInternal(f.Elevation()))
			if err != nil {
				return fmt.Errorf("floor %q: %w", f.ID, err)
			}
			set.levels = append(set.levels, l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating levels: %w", err)
	}
	return set, nil
}

// Levels returns the levels created by this set: one per floor in floor
// order, then the fallback level if it had to be created.
func (s *LevelSet) Levels() []Level {
	out := slices.Clone(s.levels)
	if s.created {
		out = append(out, *s.fallback)
	}
	return out
}

// At returns the level bound to floor index i. With legacy lookup the level
// is found by the formatted name of i itself, so floor 0 never matches.
func (s *LevelSet) At(i int) (Level, bool, error) {
	if s.cfg.Levels.LegacyNameLookup {
		return s.ByName(s.cfg.LevelName(i))
	}
	if i < 0 || i >= len(s.levels) {
		return Level{}, false, nil
	}
	return s.levels[i], true, nil
}

// ByName returns the first document level with the given name.
func (s *LevelSet) ByName(name string) (Level, bool, error) {
	levels, err := s.doc.Levels()
	if err != nil {
		return Level{}, false, err
	}
	for _, l := range levels {
		if l.Name == name {
			return l, true, nil
		}
	}
	return Level{}, false, nil
}

// Resolve returns the level for floor index i, falling back to Default.
func (s *LevelSet) Resolve(i int) (Level, error) {
	l, ok, err := s.At(i)
	if err != nil {
		return Level{}, err
	}
	if ok {
		return l, nil
	}
	return s.Default()
}

// Default returns the fallback level: the first level at elevation zero, or
// one created on first use. It must be called inside a transaction when no
// such level exists yet.
func (s *LevelSet) Default() (Level, error) {
	if s.fallback != nil {
		return *s.fallback, nil
	}
	levels, err := s.doc.Levels()
	if err != nil {
		return Level{}, err
	}
	for _, l := range levels {
		if l.Elevation == 0 {
			s.fallback = &l
			return l, nil
		}
	}
	l, err := s.doc.CreateLevel(defaultLevelName, 0)
	if err != nil {
		return Level{}, fmt.Errorf("creating default level: %w", err)
	}
	logger().Info("created fallback level", "name", l.Name)
	s.fallback = &l
	s.created = true
	return l, nil
}

// SecondHighest returns the second level by descending elevation. Levels
// at equal elevation keep creation order.
func (s *LevelSet) SecondHighest() (Level, bool, error) {
	levels, err := s.doc.Levels()
	if err != nil {
		return Level{}, false, err
	}
	if len(levels) < 2 {
		return Level{}, false, nil
	}
	slices.SortStableFunc(levels, func(a, b Level) int {
		return cmp.Compare(b.Elevation, a.Elevation)
	})
	return levels[1], true, nil
}

// First returns the first level in the document, as columns use.
func (s *LevelSet) First() (Level, error) {
	levels, err := s.doc.Levels()
	if err != nil {
		return Level{}, err
	}
	if len(levels) == 0 {
		return Level{}, ErrNoLevels
	}
	return levels[0], nil
}
