package captest

import (
	"github.com/montanaflynn/stats"

	"github.com/rlpappan/pvcaptest/adapters/stats/ols"
	domain "github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/domain/core"
)

// Compute is the pure capacity-test evaluation over two fitted models. When
// checkPValues is set, coefficients with p-values above pval are zeroed on
// working copies of the models; the originals are never modified.
func Compute(dasModel, simModel *ols.Model, rc domain.ReportingCondition,
	nameplate float64, tol domain.Tolerance, checkPValues bool, pval float64) (*domain.CapacityResult, error) {

	var prunedDAS, prunedSim []string
	if checkPValues {
		dasModel, prunedDAS = dasModel.Pruned(pval)
		simModel, prunedSim = simModel.Pruned(pval)
	}

	actual, expected, capRatio, unitCorrected := capRatio(dasModel, simModel, rc)
	capacity := nameplate * capRatio

	lower, upper, err := tol.Band(nameplate)
	if err != nil {
		return nil, err
	}

	return &domain.CapacityResult{
		Nameplate:     nameplate,
		Tolerance:     tol,
		Condition:     rc,
		Expected:      expected,
		Actual:        actual,
		CapRatio:      capRatio,
		Capacity:      capacity,
		LowerBound:    lower,
		UpperBound:    upper,
		Pass:          lower <= capacity && capacity <= upper,
		UnitCorrected: unitCorrected,
		PrunedDAS:     prunedDAS,
		PrunedSim:     prunedSim,
		CreatedAt:     core.Now(),
	}, nil
}

// capRatio predicts both models at the reporting condition and forms the
// actual/expected ratio, applying the 1000x unit-mismatch correction when the
// ratio falls below domain.UnitMismatchThreshold.
func capRatio(dasModel, simModel *ols.Model, rc domain.ReportingCondition) (actual, expected, ratio float64, unitCorrected bool) {
	point := rc.Point()
	actual = dasModel.Predict(point)
	expected = simModel.Predict(point)
	ratio = actual / expected
	if ratio < domain.UnitMismatchThreshold {
		ratio *= 1000
		actual *= 1000
		unitCorrected = true
	}
	return actual, expected, ratio, unitCorrected
}

// ResidualSummary builds the regression diagnostics table: per-term
// coefficients and p-values for both models, residual distribution stats, and
// the capacity ratio with and without p-value pruning at the default cutoff.
func (ct *CapTest) ResidualSummary(nameplate float64) (*domain.ResidualSummary, error) {
	if err := ct.requireModels(); err != nil {
		return nil, err
	}

	terms := make([]domain.TermDiagnostics, len(ct.formula.Terms))
	for j, term := range ct.formula.Terms {
		terms[j] = domain.TermDiagnostics{
			Term:     term.Name,
			DASCoeff: ct.dasModel.Coeffs[j],
			SimCoeff: ct.simModel.Coeffs[j],
			DASPVal:  ct.dasModel.PValues[j],
			SimPVal:  ct.simModel.PValues[j],
		}
	}

	_, _, ratio, _ := capRatio(ct.dasModel, ct.simModel, ct.rc)
	prunedDAS, _ := ct.dasModel.Pruned(DefaultPValueCutoff)
	prunedSim, _ := ct.simModel.Pruned(DefaultPValueCutoff)
	_, _, ratioPruned, _ := capRatio(prunedDAS, prunedSim, ct.rc)

	return &domain.ResidualSummary{
		Terms:          terms,
		DAS:            residualStats(ct.dasModel.Residuals),
		Sim:            residualStats(ct.simModel.Residuals),
		CapRatio:       ratio,
		CapRatioPruned: ratioPruned,
		Capacity:       nameplate * ratio,
		CapacityPruned: nameplate * ratioPruned,
	}, nil
}

func residualStats(residuals []float64) domain.ResidualStats {
	mean, _ := stats.Mean(residuals)
	stdDev, _ := stats.StandardDeviation(residuals)
	min, _ := stats.Min(residuals)
	max, _ := stats.Max(residuals)
	median, _ := stats.Median(residuals)
	return domain.ResidualStats{
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Median: median,
	}
}
