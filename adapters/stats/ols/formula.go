// Package ols provides the ordinary-least-squares fitting primitive used by
// the capacity-test engine: formula-driven design matrices solved by QR
// factorization, with residuals, coefficient p-values and hat-matrix
// leverages.
package ols

import (
	"fmt"
	"strings"
)

// Term is one regression term: the product of the named columns, e.g.
// {poa, t_amb} for the poa*t_amb interaction.
type Term struct {
	Name    string
	Columns []string
}

// Eval computes the term's value at a point keyed by column name.
func (t Term) Eval(point map[string]float64) float64 {
	v := 1.0
	for _, col := range t.Columns {
		v *= point[col]
	}
	return v
}

// Formula describes a no-intercept linear model: response regressed on a sum
// of product terms.
type Formula struct {
	Response string
	Terms    []Term
}

// DefaultPowerFormula is the standard capacity-test regression:
// power against irradiance, its square, and its interactions with ambient
// temperature and wind velocity, with no intercept.
const DefaultPowerFormula = "power ~ poa + poa*poa + poa*t_amb + poa*w_vel - 1"

// ParseFormula parses strings of the form
// "response ~ term + term*term + ... [- 1]". Models are always fit without an
// intercept; the trailing "- 1" is accepted for familiarity and ignored.
func ParseFormula(s string) (Formula, error) {
	parts := strings.SplitN(s, "~", 2)
	if len(parts) != 2 {
		return Formula{}, fmt.Errorf("formula %q must contain '~'", s)
	}
	response := strings.TrimSpace(parts[0])
	if response == "" {
		return Formula{}, fmt.Errorf("formula %q has no response variable", s)
	}

	rhs := strings.TrimSpace(parts[1])
	rhs = strings.TrimSuffix(rhs, "- 1")
	rhs = strings.TrimSuffix(rhs, "-1")

	var terms []Term
	for _, raw := range strings.Split(rhs, "+") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var cols []string
		for _, col := range strings.Split(raw, "*") {
			col = strings.TrimSpace(col)
			if col == "" {
				return Formula{}, fmt.Errorf("formula %q has a malformed term %q", s, raw)
			}
			cols = append(cols, col)
		}
		terms = append(terms, Term{Name: strings.Join(cols, "*"), Columns: cols})
	}
	if len(terms) == 0 {
		return Formula{}, fmt.Errorf("formula %q has no regression terms", s)
	}
	return Formula{Response: response, Terms: terms}, nil
}

// MustParseFormula parses a formula and panics on error. For fixed formulas
// known at compile time.
func MustParseFormula(s string) Formula {
	f, err := ParseFormula(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Columns returns the distinct column names the formula reads, response first.
func (f Formula) Columns() []string {
	seen := map[string]bool{f.Response: true}
	out := []string{f.Response}
	for _, t := range f.Terms {
		for _, col := range t.Columns {
			if !seen[col] {
				seen[col] = true
				out = append(out, col)
			}
		}
	}
	return out
}

// TermNames returns the term names in model order.
func (f Formula) TermNames() []string {
	out := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		out[i] = t.Name
	}
	return out
}
