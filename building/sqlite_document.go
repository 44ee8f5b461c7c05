package building

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"gonum.org/v1/gonum/spatial/r3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS levels (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	elevation REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS element_types (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	category TEXT NOT NULL,
	active   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS elements (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	level_id   INTEGER NOT NULL,
	type_id    INTEGER NOT NULL,
	host_id    INTEGER NOT NULL DEFAULT 0,
	structural TEXT NOT NULL DEFAULT '',
	geometry   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS parameters (
	element_id INTEGER NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (element_id, name)
);
`

// SQLiteDocument is a Document persisted in a SQLite database. Each
// transaction is a database transaction.
type SQLiteDocument struct {
	ctx context.Context
	db  *sql.DB
	tx  *sqliteTx
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// geometry is the JSON payload stored per element.
type geometry struct {
	Loops    []CurveLoop `json:"loops,omitempty"`
	Location *Segment    `json:"location,omitempty"`
	Point    *r3.Vec     `json:"point,omitempty"`
}

// OpenSQLiteDocument opens (creating if needed) a document database at path.
// ":memory:" opens a private in-memory document. The catalog is seeded only
// into a database that has no element types yet.
func OpenSQLiteDocument(ctx context.Context, path string, catalog []ElementType) (*SQLiteDocument, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating document directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening document database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	d := &SQLiteDocument{ctx: ctx, db: db}
	if err := d.migrate(catalog); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *SQLiteDocument) migrate(catalog []ElementType) error {
	if _, err := d.db.ExecContext(d.ctx, sqliteSchema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	var n int
	if err := d.db.QueryRowContext(d.ctx, `SELECT COUNT(*) FROM element_types`).Scan(&n); err != nil {
		return fmt.Errorf("counting element types: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, t := range catalog {
		if _, err := d.db.ExecContext(d.ctx,
			`INSERT INTO element_types (name, category, active) VALUES (?, ?, ?)`,
			t.Name, string(t.Category), boolInt(t.Active)); err != nil {
			return fmt.Errorf("seeding type %q: %w", t.Name, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close releases the database. An open transaction is rolled back.
func (d *SQLiteDocument) Close() error {
	if d.tx != nil {
		_ = d.tx.Rollback()
	}
	return d.db.Close()
}

type sqliteTx struct {
	doc  *SQLiteDocument
	name string
	tx   *sql.Tx
	done bool
}

func (t *sqliteTx) Name() string { return t.name }

func (t *sqliteTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.doc.tx = nil
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing %q: %w", t.name, err)
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.doc.tx = nil
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rolling back %q: %w", t.name, err)
	}
	return nil
}

// Begin implements Document.
func (d *SQLiteDocument) Begin(name string) (Transaction, error) {
	if d.tx != nil {
		return nil, fmt.Errorf("begin %q while %q is open: %w", name, d.tx.name, ErrTransactionActive)
	}
	tx, err := d.db.BeginTx(d.ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %q: %w", name, err)
	}
	d.tx = &sqliteTx{doc: d, name: name, tx: tx}
	return d.tx, nil
}

// q routes through the open transaction, which holds the only connection.
func (d *SQLiteDocument) q() querier {
	if d.tx != nil {
		return d.tx.tx
	}
	return d.db
}

func (d *SQLiteDocument) writer() (querier, error) {
	if d.tx == nil {
		return nil, ErrNoTransaction
	}
	return d.tx.tx, nil
}

func (d *SQLiteDocument) insert(query string, args ...any) (ElementID, error) {
	w, err := d.writer()
	if err != nil {
		return InvalidElementID, err
	}
	res, err := w.ExecContext(d.ctx, query, args...)
	if err != nil {
		return InvalidElementID, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return InvalidElementID, err
	}
	return ElementID(id), nil
}

// CreateLevel implements Document.
func (d *SQLiteDocument) CreateLevel(name string, elevation float64) (Level, error) {
	id, err := d.insert(`INSERT INTO levels (name, elevation) VALUES (?, ?)`, name, elevation)
	if err != nil {
		return Level{}, fmt.Errorf("creating level %q: %w", name, err)
	}
	return Level{ID: id, Name: name, Elevation: elevation}, nil
}

// Levels implements Document.
func (d *SQLiteDocument) Levels() ([]Level, error) {
	rows, err := d.q().QueryContext(d.ctx, `SELECT id, name, elevation FROM levels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying levels: %w", err)
	}
	defer rows.Close()

	var out []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.ID, &l.Name, &l.Elevation); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (d *SQLiteDocument) hasLevel(id ElementID) (bool, error) {
	var n int
	err := d.q().QueryRowContext(d.ctx, `SELECT COUNT(*) FROM levels WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// Types implements Document.
func (d *SQLiteDocument) Types(category Category) ([]ElementType, error) {
	rows, err := d.q().QueryContext(d.ctx,
		`SELECT id, name, category, active FROM element_types WHERE category = ? ORDER BY id`, string(category))
	if err != nil {
		return nil, fmt.Errorf("querying %s types: %w", category, err)
	}
	defer rows.Close()

	var out []ElementType
	for rows.Next() {
		var t ElementType
		var cat string
		if err := rows.Scan(&t.ID, &t.Name, &cat, &t.Active); err != nil {
			return nil, err
		}
		t.Category = Category(cat)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *SQLiteDocument) typeByID(id ElementID) (ElementType, bool, error) {
	var t ElementType
	var cat string
	err := d.q().QueryRowContext(d.ctx,
		`SELECT id, name, category, active FROM element_types WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &cat, &t.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return ElementType{}, false, nil
	}
	if err != nil {
		return ElementType{}, false, err
	}
	t.Category = Category(cat)
	return t, true, nil
}

// ActivateType implements Document.
func (d *SQLiteDocument) ActivateType(id ElementID) error {
	w, err := d.writer()
	if err != nil {
		return err
	}
	res, err := w.ExecContext(d.ctx, `UPDATE element_types SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("activating type %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("type %d: %w", id, ErrElementNotFound)
	}
	return nil
}

func (d *SQLiteDocument) checkType(id ElementID, want ...Category) error {
	t, ok, err := d.typeByID(id)
	if err != nil {
		return err
	}
	return expectCategory(t, ok, want...)
}

func (d *SQLiteDocument) checkLevel(id ElementID) error {
	ok, err := d.hasLevel(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("level %d: %w", id, ErrElementNotFound)
	}
	return nil
}

func (d *SQLiteDocument) insertElement(e Element) (ElementID, error) {
	geo, err := json.Marshal(geometry{Loops: e.Loops, Location: e.Location, Point: e.Point})
	if err != nil {
		return InvalidElementID, fmt.Errorf("encoding geometry: %w", err)
	}
	return d.insert(
		`INSERT INTO elements (kind, level_id, type_id, host_id, structural, geometry) VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.LevelID, e.TypeID, e.HostID, string(e.Structural), string(geo))
}

// CreateWall implements Document.
func (d *SQLiteDocument) CreateWall(profile CurveLoop, wallType, level ElementID, structural bool) (ElementID, error) {
	if _, err := d.writer(); err != nil {
		return InvalidElementID, err
	}
	if err := d.checkType(wallType, CategoryWallType); err != nil {
		return InvalidElementID, err
	}
	if err := d.checkLevel(level); err != nil {
		return InvalidElementID, err
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
	return d.insertElement(Element{
		Kind:       KindWall,
		LevelID:    level,
		TypeID:     wallType,
		Structural: kind,
		Loops:      []CurveLoop{profile},
		Location:   &loc,
	})
}

// CreateFloor implements Document.
func (d *SQLiteDocument) CreateFloor(loops []CurveLoop, floorType, level ElementID) (ElementID, error) {
	if _, err := d.writer(); err != nil {
		return InvalidElementID, err
	}
	if err := d.checkType(floorType, CategoryFloorType); err != nil {
		return InvalidElementID, err
	}
	if err := d.checkLevel(level); err != nil {
		return InvalidElementID, err
	}
	if len(loops) == 0 {
		return InvalidElementID, ErrDegenerateLoop
	}
	for _, l := range loops {
		if len(l) < 3 {
			return InvalidElementID, ErrDegenerateLoop
		}
		if err := l.Validate(); err != nil {
			return InvalidElementID, err
		}
	}
	return d.insertElement(Element{Kind: KindFloor, LevelID: level, TypeID: floorType, Loops: loops})
}

// CreateLineInstance implements Document.
func (d *SQLiteDocument) CreateLineInstance(axis Segment, symbol, level ElementID, kind StructuralKind) (ElementID, error) {
	if _, err := d.writer(); err != nil {
		return InvalidElementID, err
	}
	if err := d.checkType(symbol, CategoryStructuralColumn, CategoryStructuralFrame); err != nil {
		return InvalidElementID, err
	}
	if err := d.checkLevel(level); err != nil {
		return InvalidElementID, err
	}
	if axis.Length() < segmentTolerance {
		return InvalidElementID, ErrZeroLengthSegment
	}
	ek := KindColumn
	if kind == StructuralBeam {
		ek = KindBeam
	}
	return d.insertElement(Element{Kind: ek, LevelID: level, TypeID: symbol, Structural: kind, Location: &axis})
}

// CreateHostedInstance implements Document.
func (d *SQLiteDocument) CreateHostedInstance(point r3.Vec, symbol, host ElementID, kind StructuralKind) (ElementID, error) {
	if _, err := d.writer(); err != nil {
		return InvalidElementID, err
	}
	if err := d.checkType(symbol, CategoryWindow, CategoryDoor); err != nil {
		return InvalidElementID, err
	}
	h, err := d.elementByID(host)
	if err != nil {
		return InvalidElementID, err
	}
	if err := checkHosted(h, point); err != nil {
		return InvalidElementID, err
	}
	return d.insertElement(Element{
		Kind:       KindOpening,
		LevelID:    h.LevelID,
		TypeID:     symbol,
		HostID:     host,
		Structural: kind,
		Point:      &point,
	})
}

// ChangeType implements Document.
func (d *SQLiteDocument) ChangeType(id, typeID ElementID) error {
	w, err := d.writer()
	if err != nil {
		return err
	}
	if _, ok, err := d.typeByID(typeID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("type %d: %w", typeID, ErrElementNotFound)
	}
	res, err := w.ExecContext(d.ctx, `UPDATE elements SET type_id = ? WHERE id = ?`, typeID, id)
	if err != nil {
		return fmt.Errorf("changing type of %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("element %d: %w", id, ErrElementNotFound)
	}
	return nil
}

// SetParameter implements Document.
func (d *SQLiteDocument) SetParameter(id ElementID, name string, value any) error {
	w, err := d.writer()
	if err != nil {
		return err
	}
	if _, err := d.elementByID(id); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding parameter %s: %w", name, err)
	}
	_, err = w.ExecContext(d.ctx,
		`INSERT INTO parameters (element_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (element_id, name) DO UPDATE SET value = excluded.value`,
		id, name, string(data))
	if err != nil {
		return fmt.Errorf("setting parameter %s on %d: %w", name, id, err)
	}
	return nil
}

// Parameter implements Document. Numbers decode as float64.
func (d *SQLiteDocument) Parameter(id ElementID, name string) (any, bool, error) {
	if _, err := d.elementByID(id); err != nil {
		return nil, false, err
	}
	var raw string
	err := d.q().QueryRowContext(d.ctx,
		`SELECT value FROM parameters WHERE element_id = ? AND name = ?`, id, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false, fmt.Errorf("decoding parameter %s: %w", name, err)
	}
	return v, true, nil
}

const elementColumns = `id, kind, level_id, type_id, host_id, structural, geometry`

func scanElement(scan func(dest ...any) error) (Element, error) {
	var e Element
	var kind, structural, geo string
	if err := scan(&e.ID, &kind, &e.LevelID, &e.TypeID, &e.HostID, &structural, &geo); err != nil {
		return Element{}, err
	}
	e.Kind = ElementKind(kind)
	e.Structural = StructuralKind(structural)
	var g geometry
	if err := json.Unmarshal([]byte(geo), &g); err != nil {
		return Element{}, fmt.Errorf("decoding geometry of %d: %w", e.ID, err)
	}
	e.Loops, e.Location, e.Point = g.Loops, g.Location, g.Point
	return e, nil
}

func (d *SQLiteDocument) elementByID(id ElementID) (Element, error) {
	row := d.q().QueryRowContext(d.ctx, `SELECT `+elementColumns+` FROM elements WHERE id = ?`, id)
	e, err := scanElement(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Element{}, fmt.Errorf("element %d: %w", id, ErrElementNotFound)
	}
	return e, err
}

// Elements implements Document.
func (d *SQLiteDocument) Elements(kind ElementKind) ([]Element, error) {
	rows, err := d.q().QueryContext(d.ctx,
		`SELECT `+elementColumns+` FROM elements WHERE kind = ? ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying %s elements: %w", kind, err)
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		e, err := scanElement(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
