package building

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTypeNotFound marks a named type that the document does not carry.
var ErrTypeNotFound = errors.New("element type not found")

// Element-level condition codes.
const (
	CodeWallTypeNotFound  = "wall_type_not_found"
	CodeLevelNotFound     = "level_not_found"
	CodeCreationFailed    = "creation_failed"
	CodeFamilyTypeMissing = "family_type_missing"
	CodeNoHostWall        = "no_host_wall"
	CodePlacementFailed   = "placement_failed"
	CodeNoOpeningTypes    = "no_opening_types"
)

// ElementError is a contained, element-level failure. Silent errors are kept
// in the report but not surfaced in the summary.
type ElementError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Silent  bool   `json:"silent,omitempty"`
	Err     error  `json:"-"`
}

func (e *ElementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ElementError) Unwrap() error { return e.Err }

// ElementResult is the outcome for one input element on one pass.
// Handle is set when an element exists in the document, even if a later
// edit on it failed.
type ElementResult struct {
	Kind   ElementKind   `json:"kind"`
	SpecID string        `json:"specId"`
	Pass   int           `json:"pass"`
	Handle ElementID     `json:"handle,omitempty"`
	Err    *ElementError `json:"error,omitempty"`
}

// Report aggregates one pipeline run.
type Report struct {
	RunID      string          `json:"runId"`
	BuildingID string          `json:"buildingId"`
	StartedAt  time.Time       `json:"startedAt"`
	Levels     []Level         `json:"levels"`
	Results    []ElementResult `json:"results"`
	// Err is the fatal or batch-level failure, if any.
	Err error `json:"-"`
}

// NewReport starts a report with a fresh run id.
func NewReport(buildingID string) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		BuildingID: buildingID,
		StartedAt:  time.Now().UTC(),
	}
}

func (r *Report) created(kind ElementKind, specID string, pass int, id ElementID) {
	r.Results = append(r.Results, ElementResult{Kind: kind, SpecID: specID, Pass: pass, Handle: id})
}

func (r *Report) failed(kind ElementKind, specID string, pass int, id ElementID, ee *ElementError) {
	r.Results = append(r.Results, ElementResult{Kind: kind, SpecID: specID, Pass: pass, Handle: id, Err: ee})
	log := logger().With("kind", string(kind), "id", specID, "pass", pass, "code", ee.Code)
	if ee.Silent {
		log.Debug(ee.Message, "error", ee.Err)
		return
	}
	log.Warn(ee.Message, "error", ee.Err)
}

// OK reports a run with no fatal error and no surfaced element condition.
func (r *Report) OK() bool {
	return r.Err == nil && len(r.Conditions()) == 0
}

// Conditions returns the non-silent element errors in report order.
func (r *Report) Conditions() []ElementResult {
	var out []ElementResult
	for _, res := range r.Results {
		if res.Err != nil && !res.Err.Silent {
			out = append(out, res)
		}
	}
	return out
}

// Count returns how many elements of a kind exist in the document after the run.
func (r *Report) Count(kind ElementKind) int {
	n := 0
	for _, res := range r.Results {
		if res.Kind == kind && res.Handle != InvalidElementID {
			n++
		}
	}
	return n
}

// Summary renders the human-readable outcome.
func (r *Report) Summary() string {
	var b strings.Builder
	if r.Err != nil {
		fmt.Fprintf(&b, "Building %q failed: %v\n", r.BuildingID, r.Err)
	} else {
		fmt.Fprintf(&b, "Building %q created successfully\n", r.BuildingID)
	}
	fmt.Fprintf(&b, "  levels: %d, floors: %d, walls: %d, columns: %d, beams: %d, openings: %d\n",
		len(r.Levels), r.Count(KindFloor), r.Count(KindWall), r.Count(KindColumn),
		r.Count(KindBeam), r.Count(KindOpening))
	for _, c := range r.Conditions() {
		fmt.Fprintf(&b, "  %s %s (pass %d): %s\n", c.Kind, c.SpecID, c.Pass, c.Err.Error())
	}
	return b.String()
}
