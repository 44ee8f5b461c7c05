package building

import (
	"fmt"
)

// Run reconstructs model inside doc: levels first, then floors, walls,
// columns and beams in one transaction, then openings in a second one.
// The model is checked and its wall kinds resolved the same way
// ParseModelJSON does; model itself is left untouched.
// The returned report is never nil; its Err matches the returned error.
func Run(doc Document, model *BuildingModel, cfg *Config) (*Report, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if model == nil {
		return NewReport(""), fmt.Errorf("no model: %w", ErrInvalidModel)
	}
	report := NewReport(model.BuildingID)
	log := logger().With("run", report.RunID, "building", model.BuildingID)

	fail := func(err error) (*Report, error) {
		report.Err = err
		log.Error("run failed", "error", err)
		return report, err
	}
	if doc == nil {
		return fail(ErrNoDocument)
	}
	model, err := model.normalized()
	if err != nil {
		return fail(err)
	}
	conv, err := cfg.Converter()
	if err != nil {
		return fail(err)
	}

	log.Info("run started",
		"floors", len(model.Components.Floors),
		"walls", len(model.Components.Walls),
		"columns", len(model.Components.Columns),
		"openings", len(model.Components.Openings))

	levels, err := ResolveLevels(doc, model.Components.Floors, conv, cfg)
	if err != nil {
		return fail(err)
	}
	report.Levels = levels.Levels()

	s := &synthesizer{doc: doc, conv: conv, cfg: cfg, levels: levels, report: report}
	mark := len(report.Results)
	err = InTransaction(doc, "Create Building Elements", func() error {
		s.buildFloors(model)
		if err := s.buildColumns(model.Components.Columns); err != nil {
			return err
		}
		s.buildBeams(model.Components.Beams)
		return nil
	})
	if err != nil {
		// Nothing from the rolled back batch survives.
		report.Results = report.Results[:mark]
		return fail(fmt.Errorf("creating building elements: %w", err))
	}
	// picks up a fallback level created during the batch
	report.Levels = levels.Levels()

	mark = len(report.Results)
	if err := PlaceOpenings(doc, model.Components.Openings, conv, cfg, report); err != nil {
		report.Results = report.Results[:mark]
		return fail(fmt.Errorf("creating openings: %w", err))
	}

	log.Info("run finished", "ok", report.OK(), "conditions", len(report.Conditions()))
	return report, nil
}
