// Package report formats capacity-test results for humans. The numeric
// computation lives in internal/captest; this layer only renders.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	domain "github.com/rlpappan/pvcaptest/domain/captest"
)

// Text renders the console summary of a capacity test.
func Text(res *domain.CapacityResult) string {
	verdict := "FAIL"
	if res.Pass {
		verdict = "PASS"
	}

	var b strings.Builder
	line := func(label string, format string, args ...interface{}) {
		fmt.Fprintf(&b, "%-30s", label)
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	line("Capacity Test Result:", "%s", verdict)
	line("Modeled test output:", "%.3f", res.Expected)
	line("Actual test output:", "%.3f", res.Actual)
	line("Tested output ratio:", "%.3f", res.CapRatio)
	line("Tested Capacity:", "%.3f", res.Capacity)
	line("Bounds:", "%g, %g", res.LowerBound, res.UpperBound)
	if res.UnitCorrected {
		line("Note:", "%s", "actual output scaled 1000x for unit mismatch")
	}
	return b.String()
}

// FilterHistoryText renders the merged filter history as an aligned table.
// An empty step list yields the informational no-filters message.
func FilterHistoryText(steps []domain.FilterStep) string {
	if len(steps) == 0 {
		return domain.ErrEmptyHistory.Error() + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %-20s %-14s %10s %8s\n", "data", "method", "args", "remaining", "removed")
	for _, s := range steps {
		fmt.Fprintf(&b, "%-5s %-20s %-14s %10d %8d\n", s.Tag, s.Method, s.Args, s.Remaining, s.Removed)
	}
	return b.String()
}

// Markdown renders a full capacity-test report: verdict, inputs, regression
// diagnostics and filter history.
func Markdown(res *domain.CapacityResult, summary *domain.ResidualSummary, steps []domain.FilterStep) string {
	verdict := "FAIL"
	if res.Pass {
		verdict = "PASS"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Capacity Test Report\n\n")
	fmt.Fprintf(&b, "**Result: %s**\n\n", verdict)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Nameplate | %g |\n", res.Nameplate)
	fmt.Fprintf(&b, "| Tolerance | %s |\n", res.Tolerance)
	fmt.Fprintf(&b, "| Reporting condition | poa=%g, t_amb=%g, w_vel=%g |\n",
		res.Condition.POA, res.Condition.TAmb, res.Condition.WVel)
	fmt.Fprintf(&b, "| Modeled output | %.3f |\n", res.Expected)
	fmt.Fprintf(&b, "| Actual output | %.3f |\n", res.Actual)
	fmt.Fprintf(&b, "| Capacity ratio | %.3f |\n", res.CapRatio)
	fmt.Fprintf(&b, "| Tested capacity | %.3f |\n", res.Capacity)
	fmt.Fprintf(&b, "| Bounds | %g, %g |\n\n", res.LowerBound, res.UpperBound)

	if res.UnitCorrected {
		fmt.Fprintf(&b, "Actual output was scaled 1000x to correct a kW/W unit mismatch.\n\n")
	}

	if summary != nil {
		fmt.Fprintf(&b, "## Regression diagnostics\n\n")
		fmt.Fprintf(&b, "| term | das coeff | sim coeff | das p | sim p |\n|---|---|---|---|---|\n")
		for _, t := range summary.Terms {
			fmt.Fprintf(&b, "| %s | %.5g | %.5g | %.4g | %.4g |\n",
				t.Term, t.DASCoeff, t.SimCoeff, t.DASPVal, t.SimPVal)
		}
		fmt.Fprintf(&b, "\nCap ratio %.3f (%.3f after p-value pruning)\n\n",
			summary.CapRatio, summary.CapRatioPruned)
	}

	if len(steps) > 0 {
		fmt.Fprintf(&b, "## Filter history\n\n")
		fmt.Fprintf(&b, "| data | method | args | remaining | removed |\n|---|---|---|---|---|\n")
		for _, s := range steps {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %d |\n", s.Tag, s.Method, s.Args, s.Remaining, s.Removed)
		}
	}
	return b.String()
}

// HTML renders a markdown report as a standalone HTML fragment.
func HTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}
