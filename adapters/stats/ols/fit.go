package ols

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rlpappan/pvcaptest/domain/frame"
)

// FitError reports data that cannot support a regression: too few rows for
// the number of free parameters, a missing required column, or a singular
// design matrix.
type FitError struct {
	Reason string
	Rows   int
	Terms  int
	Column string
	Cause  error
}

func (e *FitError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("fit: required column %q missing", e.Column)
	case e.Cause != nil:
		return fmt.Sprintf("fit: %s: %v", e.Reason, e.Cause)
	default:
		return fmt.Sprintf("fit: %s (%d rows, %d terms)", e.Reason, e.Rows, e.Terms)
	}
}

func (e *FitError) Unwrap() error { return e.Cause }

// Model is a fitted no-intercept OLS model.
type Model struct {
	Formula Formula

	// Coeffs, StdErrs and PValues are indexed by formula term.
	Coeffs  []float64
	StdErrs []float64
	PValues []float64

	// Residuals and Leverages are indexed by observation, in input row order.
	Residuals []float64
	Fitted    []float64
	Leverages []float64

	// Scale is the mean squared error of the residuals (RSS / dof).
	Scale float64
	Rows  int
	DoF   int
}

// Fit performs an ordinary-least-squares fit of the formula on the frame.
// It is a pure function of its inputs: the frame is not modified.
func Fit(f *frame.Frame, formula Formula) (*Model, error) {
	var missing *frame.MissingColumnError
	if err := f.Require(formula.Columns()...); err != nil {
		if errors.As(err, &missing) {
			return nil, &FitError{Reason: "missing column", Column: missing.Column, Cause: err}
		}
		return nil, &FitError{Reason: "column validation failed", Cause: err}
	}

	n := f.Len()
	k := len(formula.Terms)
	if n < k {
		return nil, &FitError{Reason: "fewer rows than free parameters", Rows: n, Terms: k}
	}

	y, _ := f.Column(formula.Response)
	cols := make(map[string][]float64, len(formula.Columns()))
	for _, name := range formula.Columns() {
		cols[name], _ = f.Column(name)
	}

	// Design matrix: one column per term, products of the term's columns.
	x := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j, term := range formula.Terms {
			v := 1.0
			for _, col := range term.Columns {
				v *= cols[col][i]
			}
			x.Set(i, j, v)
		}
	}

	b := mat.NewVecDense(n, append([]float64(nil), y...))
	beta := mat.NewVecDense(k, nil)

	var qr mat.QR
	qr.Factorize(x)
	if err := qr.SolveVecTo(beta, false, b); err != nil {
		return nil, &FitError{Reason: "singular design matrix", Rows: n, Terms: k, Cause: err}
	}

	// Residuals and scale.
	var fittedVec mat.VecDense
	fittedVec.MulVec(x, beta)
	fitted := make([]float64, n)
	residuals := make([]float64, n)
	rss := 0.0
	for i := 0; i < n; i++ {
		fitted[i] = fittedVec.AtVec(i)
		residuals[i] = y[i] - fitted[i]
		rss += residuals[i] * residuals[i]
	}
	dof := n - k
	scale := 0.0
	if dof > 0 {
		scale = rss / float64(dof)
	}

	// Coefficient covariance and leverages need (X'X)^-1.
	var xtx, xtxInv mat.Dense
	xtx.Mul(x.T(), x)
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, &FitError{Reason: "singular design matrix", Rows: n, Terms: k, Cause: err}
	}

	coeffs := make([]float64, k)
	stderrs := make([]float64, k)
	pvalues := make([]float64, k)
	for j := 0; j < k; j++ {
		coeffs[j] = beta.AtVec(j)
		stderrs[j] = math.Sqrt(scale * xtxInv.At(j, j))
		pvalues[j] = tTestPValue(coeffs[j], stderrs[j], dof)
	}

	leverages := make([]float64, n)
	row := mat.NewVecDense(k, nil)
	var tmp mat.VecDense
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			row.SetVec(j, x.At(i, j))
		}
		tmp.MulVec(&xtxInv, row)
		leverages[i] = mat.Dot(row, &tmp)
	}

	return &Model{
		Formula:   formula,
		Coeffs:    coeffs,
		StdErrs:   stderrs,
		PValues:   pvalues,
		Residuals: residuals,
		Fitted:    fitted,
		Leverages: leverages,
		Scale:     scale,
		Rows:      n,
		DoF:       dof,
	}, nil
}

// tTestPValue is the two-sided p-value for coeff/stderr against a Student's t
// distribution with dof degrees of freedom. NaN when the test is undefined
// (saturated model or zero standard error).
func tTestPValue(coeff, stderr float64, dof int) float64 {
	if dof <= 0 || stderr == 0 || math.IsNaN(stderr) {
		return math.NaN()
	}
	t := math.Abs(coeff / stderr)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	return 2 * (1 - dist.CDF(t))
}

// Predict evaluates the model at a single point keyed by column name.
func (m *Model) Predict(point map[string]float64) float64 {
	out := 0.0
	for j, term := range m.Formula.Terms {
		out += m.Coeffs[j] * term.Eval(point)
	}
	return out
}

// SEE is the standard error of estimate, the square root of the residual MSE.
func (m *Model) SEE() float64 {
	return math.Sqrt(m.Scale)
}

// Pruned returns a copy of the model with every coefficient whose p-value
// exceeds cutoff set to zero, along with the pruned term names. The receiver
// is never modified.
func (m *Model) Pruned(cutoff float64) (*Model, []string) {
	out := *m
	out.Coeffs = append([]float64(nil), m.Coeffs...)
	var pruned []string
	for j, p := range m.PValues {
		if p > cutoff {
			out.Coeffs[j] = 0
			pruned = append(pruned, m.Formula.Terms[j].Name)
		}
	}
	return &out, pruned
}

// CoeffByName returns the coefficient for a named term.
func (m *Model) CoeffByName(name string) (float64, bool) {
	for j, term := range m.Formula.Terms {
		if term.Name == name {
			return m.Coeffs[j], true
		}
	}
	return 0, false
}
