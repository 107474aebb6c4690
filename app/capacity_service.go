// Package app wires the capacity-test engine to its collaborators: dataset
// loading, run execution, and result assembly for the CLI and HTTP surfaces.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rlpappan/pvcaptest/adapters/tabular"
	"github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/domain/core"
	"github.com/rlpappan/pvcaptest/domain/frame"
	engine "github.com/rlpappan/pvcaptest/internal/captest"
	apperrors "github.com/rlpappan/pvcaptest/internal/errors"
	"github.com/rlpappan/pvcaptest/internal/logging"
)

// RunParams specifies a full capacity-test run.
type RunParams struct {
	DASFile string `json:"das_file"`
	SimFile string `json:"sim_file"`

	Nameplate float64                    `json:"nameplate"`
	Tolerance string                     `json:"tolerance"`
	Condition captest.ReportingCondition `json:"condition"`

	CheckPValues bool    `json:"check_pvalues"`
	PValueCutoff float64 `json:"pval"`

	// FilterPasses is how many regression-filter rounds to apply to each
	// dataset before the final fits. Defaults to 1.
	FilterPasses int `json:"filter_passes"`
}

// RunOutcome bundles everything one run produces.
type RunOutcome struct {
	ID          core.RunID               `json:"id"`
	Result      *captest.CapacityResult  `json:"result"`
	Summary     *captest.ResidualSummary `json:"summary"`
	Steps       []captest.FilterStep     `json:"steps"`
	Uncertainty float64                  `json:"uncertainty"`
}

// CapacityService executes capacity-test runs end to end.
type CapacityService struct {
	log *logging.Logger
}

// NewCapacityService creates the run service.
func NewCapacityService() *CapacityService {
	return &CapacityService{log: logging.Default.WithComponent("capacity")}
}

// Execute loads both datasets and runs the full test workflow: per-dataset
// regression filtering, final fits, capacity evaluation and uncertainty.
func (s *CapacityService) Execute(ctx context.Context, p RunParams) (*RunOutcome, error) {
	if p.DASFile == "" || p.SimFile == "" {
		return nil, apperrors.InvalidInput("das and sim dataset files are required")
	}
	das, sim, err := tabular.LoadPair(ctx, p.DASFile, p.SimFile)
	if err != nil {
		return nil, apperrors.DataLoadError(p.DASFile+", "+p.SimFile, err)
	}
	return s.ExecuteFrames(ctx, das, sim, p)
}

// prepare aligns the datasets on their shared timestamps and drops rows with
// unparsable regression values.
func (s *CapacityService) prepare(das, sim *frame.Frame) (*frame.Frame, *frame.Frame, error) {
	if das.Index() != nil && sim.Index() != nil {
		aligned1, aligned2, err := frame.AlignPair(das, sim)
		if err != nil {
			return nil, nil, apperrors.InvalidInput(err.Error())
		}
		if aligned1.Len() != das.Len() || aligned2.Len() != sim.Len() {
			s.log.Info("aligned datasets to %d shared intervals (das %d, sim %d)",
				aligned1.Len(), das.Len(), sim.Len())
		}
		das, sim = aligned1, aligned2
	}

	cols := captest.RegressionColumns()
	for _, d := range []struct {
		name  string
		frame **frame.Frame
	}{{"das", &das}, {"sim", &sim}} {
		clean, err := (*d.frame).DropNaN(cols...)
		if err != nil {
			return nil, nil, apperrors.InvalidInput(d.name + ": " + err.Error())
		}
		if dropped := (*d.frame).Len() - clean.Len(); dropped > 0 {
			s.log.Info("%s: dropped %d rows with missing values", d.name, dropped)
		}
		*d.frame = clean
	}
	return das, sim, nil
}

// ExecuteFrames runs the workflow on already-loaded frames.
func (s *CapacityService) ExecuteFrames(_ context.Context, das, sim *frame.Frame, p RunParams) (*RunOutcome, error) {
	if p.Nameplate <= 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("nameplate must be positive, got %g", p.Nameplate))
	}
	tol, err := captest.ParseTolerance(p.Tolerance)
	if err != nil {
		return nil, err
	}
	cutoff := p.PValueCutoff
	if cutoff == 0 {
		cutoff = engine.DefaultPValueCutoff
	}
	passes := p.FilterPasses
	if passes <= 0 {
		passes = 1
	}

	das, sim, err = s.prepare(das, sim)
	if err != nil {
		return nil, err
	}

	ct := engine.New(das, sim)
	ct.SetReportingCondition(p.Condition)
	ct.SetTolerance(tol)

	tags := []captest.DatasetTag{captest.TagDAS, captest.TagSim}
	for pass := 0; pass < passes; pass++ {
		for _, tag := range tags {
			if _, err := ct.Fit(tag, engine.FitOptions{Filter: true, InPlace: true}); err != nil {
				return nil, err
			}
		}
	}
	for _, tag := range tags {
		if _, err := ct.Fit(tag, engine.FitOptions{Summary: true}); err != nil {
			return nil, err
		}
	}

	result, err := ct.CapacityResult(p.Nameplate, p.CheckPValues, cutoff)
	if err != nil {
		return nil, err
	}
	summary, err := ct.ResidualSummary(p.Nameplate)
	if err != nil {
		return nil, err
	}
	uncertainty, err := ct.Uncertainty()
	if err != nil {
		return nil, err
	}
	steps, err := ct.FilterHistory()
	if err != nil && !errors.Is(err, captest.ErrEmptyHistory) {
		return nil, err
	}

	id := core.NewRunID()
	result.RunID = id
	s.log.Info("run %s: capacity %.3f vs [%g, %g] pass=%t",
		id, result.Capacity, result.LowerBound, result.UpperBound, result.Pass)

	return &RunOutcome{
		ID:          id,
		Result:      result,
		Summary:     summary,
		Steps:       steps,
		Uncertainty: uncertainty,
	}, nil
}
