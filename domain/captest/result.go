package captest

import (
	"github.com/rlpappan/pvcaptest/domain/core"
)

// UnitMismatchThreshold is the cap-ratio value below which a 1000x unit
// mismatch between datasets (kW vs W) is assumed and corrected. The 0.01
// cutoff is a fragile heuristic carried over from established test practice,
// not a general unit-detection mechanism; callers mixing other unit systems
// should convert their data instead of relying on it.
const UnitMismatchThreshold = 0.01

// CapacityResult is the structured outcome of a capacity test. It is a pure
// data record; formatting and printing live in the presentation layer.
type CapacityResult struct {
	RunID     core.RunID         `json:"run_id"`
	Nameplate float64            `json:"nameplate"`
	Tolerance Tolerance          `json:"tolerance"`
	Condition ReportingCondition `json:"condition"`

	// Expected is the simulated model's output at the reporting condition,
	// Actual the measured model's output after any unit correction.
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`

	CapRatio float64 `json:"cap_ratio"`
	Capacity float64 `json:"capacity"`

	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	Pass       bool    `json:"pass"`

	// UnitCorrected is set when the 1000x unit-mismatch heuristic fired.
	UnitCorrected bool `json:"unit_corrected"`

	// PrunedDAS/PrunedSim list coefficient names zeroed by p-value pruning.
	PrunedDAS []string `json:"pruned_das,omitempty"`
	PrunedSim []string `json:"pruned_sim,omitempty"`

	CreatedAt core.Timestamp `json:"created_at"`
}

// ResidualSummary reports the per-term regression diagnostics for both models
// along with the capacity ratio before and after p-value pruning.
type ResidualSummary struct {
	Terms          []TermDiagnostics `json:"terms"`
	DAS            ResidualStats     `json:"das_residuals"`
	Sim            ResidualStats     `json:"sim_residuals"`
	CapRatio       float64           `json:"cap_ratio"`
	CapRatioPruned float64           `json:"cap_ratio_pruned"`
	Capacity       float64           `json:"capacity"`
	CapacityPruned float64           `json:"capacity_pruned"`
}

// TermDiagnostics pairs one regression term's coefficient and p-value across
// the measured and simulated fits.
type TermDiagnostics struct {
	Term     string  `json:"term"`
	DASCoeff float64 `json:"das_coeff"`
	SimCoeff float64 `json:"sim_coeff"`
	DASPVal  float64 `json:"das_pval"`
	SimPVal  float64 `json:"sim_pval"`
}

// ResidualStats summarizes a fitted model's residual distribution.
type ResidualStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}
