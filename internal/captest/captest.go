// Package captest implements the capacity-test engine: regression fitting
// and residual filtering of the measured (das) and simulated (sim) datasets,
// capacity-ratio evaluation against a reporting condition, filter-history
// bookkeeping, and the added-point leverage uncertainty estimate.
package captest

import (
	"fmt"
	"math"
	"time"

	"github.com/rlpappan/pvcaptest/adapters/stats/ols"
	domain "github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/domain/frame"
	"github.com/rlpappan/pvcaptest/internal/logging"
)

// residualSigmaLimit is the outlier cutoff for regression filtering: rows
// with |residual| >= residualSigmaLimit * sqrt(scale) are removed.
const residualSigmaLimit = 2.0

// DefaultPValueCutoff is the significance level used when pruning
// coefficients without an explicit cutoff.
const DefaultPValueCutoff = 0.05

// datasetPair is one dataset's explicitly-owned raw/filtered handle pair.
// The raw frame is never mutated; filter operations work on the filtered
// copy, whose row count only ever decreases.
type datasetPair struct {
	tag      domain.DatasetTag
	raw      *frame.Frame
	filtered *frame.Frame
}

// ensureFiltered returns the working copy, initializing it from the raw data
// on first use.
func (p *datasetPair) ensureFiltered() *frame.Frame {
	if p.filtered == nil || p.filtered.Empty() {
		p.filtered = p.raw.Copy()
	}
	return p.filtered
}

// CapTest owns the measured and simulated datasets of one capacity test and
// the models fit against them. Instances are not safe for concurrent use;
// each test run owns its CapTest exclusively.
type CapTest struct {
	das *datasetPair
	sim *datasetPair

	rc    domain.ReportingCondition
	rcSet bool
	tol   domain.Tolerance

	formula  ols.Formula
	dasModel *ols.Model
	simModel *ols.Model

	history *domain.FilterLog
	log     *logging.Logger
}

// Option configures a CapTest.
type Option func(*CapTest)

// WithFormula overrides the default power regression formula.
func WithFormula(f ols.Formula) Option {
	return func(ct *CapTest) { ct.formula = f }
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(ct *CapTest) { ct.log = l }
}

// New creates a capacity test over a measured (das) and simulated (sim)
// dataset. Both frames are retained as immutable raw copies.
func New(das, sim *frame.Frame, opts ...Option) *CapTest {
	ct := &CapTest{
		das:     &datasetPair{tag: domain.TagDAS, raw: das},
		sim:     &datasetPair{tag: domain.TagSim, raw: sim},
		formula: ols.MustParseFormula(ols.DefaultPowerFormula),
		history: domain.NewFilterLog(),
		log:     logging.Default.WithComponent("captest"),
	}
	for _, opt := range opts {
		opt(ct)
	}
	return ct
}

// SetReportingCondition fixes the point at which capacity is evaluated.
func (ct *CapTest) SetReportingCondition(rc domain.ReportingCondition) {
	ct.rc = rc
	ct.rcSet = true
}

// SetTolerance fixes the acceptance band specification.
func (ct *CapTest) SetTolerance(t domain.Tolerance) {
	ct.tol = t
}

// ReportingCondition returns the configured reporting condition.
func (ct *CapTest) ReportingCondition() domain.ReportingCondition {
	return ct.rc
}

// Tolerance returns the configured tolerance.
func (ct *CapTest) Tolerance() domain.Tolerance {
	return ct.tol
}

// Models returns the fitted das and sim models; either may be nil before the
// corresponding Fit call.
func (ct *CapTest) Models() (das, sim *ols.Model) {
	return ct.dasModel, ct.simModel
}

// FilteredFrame returns the working copy for a dataset, initializing it from
// the raw data if needed.
func (ct *CapTest) FilteredFrame(tag domain.DatasetTag) (*frame.Frame, error) {
	pair, err := ct.pair(tag)
	if err != nil {
		return nil, err
	}
	return pair.ensureFiltered(), nil
}

// RawFrame returns the immutable raw frame for a dataset.
func (ct *CapTest) RawFrame(tag domain.DatasetTag) (*frame.Frame, error) {
	pair, err := ct.pair(tag)
	if err != nil {
		return nil, err
	}
	return pair.raw, nil
}

func (ct *CapTest) pair(tag domain.DatasetTag) (*datasetPair, error) {
	switch tag {
	case domain.TagDAS:
		return ct.das, nil
	case domain.TagSim:
		return ct.sim, nil
	default:
		return nil, fmt.Errorf("unknown dataset tag %q", tag)
	}
}

// FitOptions controls a Fit call.
type FitOptions struct {
	// Filter removes rows whose residual magnitude reaches two standard
	// deviations of the fit and records a filter step, instead of storing
	// the model.
	Filter bool
	// InPlace commits the reduced frame as the dataset's working copy.
	// Only meaningful with Filter.
	InPlace bool
	// Summary logs the regression summary.
	Summary bool
}

// Fit performs the OLS regression on a dataset's working copy.
//
// Without Filter the fitted model is stored on the CapTest and a nil frame is
// returned. With Filter the model is used once to drop outlying rows and the
// reduced frame is returned; with InPlace it also replaces the dataset's
// working copy. Fit errors propagate unchanged with the dataset tag attached.
func (ct *CapTest) Fit(tag domain.DatasetTag, opts FitOptions) (*frame.Frame, error) {
	pair, err := ct.pair(tag)
	if err != nil {
		return nil, err
	}
	working := pair.ensureFiltered()

	model, err := ols.Fit(working, ct.formula)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tag, err)
	}

	if opts.Summary {
		ct.logSummary(tag, model)
	}

	if !opts.Filter {
		switch tag {
		case domain.TagDAS:
			ct.dasModel = model
		case domain.TagSim:
			ct.simModel = model
		}
		return nil, nil
	}

	ct.log.Info("regression used to filter outlying points (%s)", tag)
	threshold := residualSigmaLimit * math.Sqrt(model.Scale)
	keep := make([]bool, len(model.Residuals))
	for i, r := range model.Residuals {
		keep[i] = math.Abs(r) < threshold
	}
	reduced, err := working.SelectMask(keep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tag, err)
	}

	ct.history.Append(domain.FilterStep{
		Tag:       tag,
		Method:    "regression_filter",
		Args:      fmt.Sprintf("sigma=%g", residualSigmaLimit),
		Remaining: reduced.Len(),
		Removed:   working.Len() - reduced.Len(),
	})

	if opts.InPlace {
		pair.filtered = reduced
	}
	return reduced, nil
}

// CapacityResult evaluates the capacity test: predicts actual and expected
// output at the reporting condition, forms the capacity ratio and compares
// nameplate * ratio against the tolerance band. Requires both models to have
// been fit. The computation is pure; formatting is left to callers.
func (ct *CapTest) CapacityResult(nameplate float64, checkPValues bool, pval float64) (*domain.CapacityResult, error) {
	if err := ct.requireModels(); err != nil {
		return nil, err
	}
	if nameplate <= 0 {
		return nil, fmt.Errorf("nameplate must be positive, got %g", nameplate)
	}
	return Compute(ct.dasModel, ct.simModel, ct.rc, nameplate, ct.tol, checkPValues, pval)
}

// Uncertainty computes the random standard uncertainty of the das regression
// at the reporting condition: the standard error of estimate times the square
// root of the reporting point's leverage. The reporting condition (with the
// predicted actual output substituted for power) is appended as the last
// observation of the das working copy and its leverage read from that row.
func (ct *CapTest) Uncertainty() (float64, error) {
	if ct.dasModel == nil {
		return 0, fmt.Errorf("uncertainty requires a fitted das model")
	}
	if !ct.rcSet {
		return 0, fmt.Errorf("uncertainty requires a reporting condition")
	}

	see := ct.dasModel.SEE()
	working := ct.das.ensureFiltered()
	df, err := working.View(ct.formula.Columns()...)
	if err != nil {
		return 0, fmt.Errorf("das: %w", err)
	}

	values := ct.rc.Point()
	values[ct.formula.Response] = ct.dasModel.Predict(ct.rc.Point())

	var ts time.Time
	if idx := df.Index(); len(idx) > 0 {
		ts = idx[len(idx)-1]
	}
	if err := df.AppendRow(ts, values); err != nil {
		return 0, fmt.Errorf("das: %w", err)
	}

	refit, err := ols.Fit(df, ct.formula)
	if err != nil {
		return 0, fmt.Errorf("das: %w", err)
	}
	// Leverage must be read from the appended reporting-condition row, which
	// is last by construction.
	leverage := refit.Leverages[refit.Rows-1]
	return see * math.Sqrt(leverage), nil
}

// FilterHistory returns the merged das-then-sim filter history. When no
// filters have been run it reports the condition and returns
// domain.ErrEmptyHistory.
func (ct *CapTest) FilterHistory() ([]domain.FilterStep, error) {
	steps, err := ct.history.Merged()
	if err != nil {
		ct.log.Info("%v", err)
		return nil, err
	}
	return steps, nil
}

func (ct *CapTest) requireModels() error {
	if ct.dasModel == nil || ct.simModel == nil {
		return fmt.Errorf("capacity evaluation requires fitted das and sim models")
	}
	return nil
}

func (ct *CapTest) logSummary(tag domain.DatasetTag, m *ols.Model) {
	ct.log.Info("regression summary (%s): n=%d dof=%d scale=%.6g", tag, m.Rows, m.DoF, m.Scale)
	for j, term := range m.Formula.Terms {
		ct.log.Info("  %-12s coeff=%.6g stderr=%.6g p=%.4g",
			term.Name, m.Coeffs[j], m.StdErrs[j], m.PValues[j])
	}
}
