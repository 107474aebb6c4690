package captest

// Standard regression column names. Datasets are validated against these
// names explicitly; columns are never renamed by position.
const (
	ColPower = "power"
	ColPOA   = "poa"
	ColTAmb  = "t_amb"
	ColWVel  = "w_vel"
)

// RegressionColumns lists the columns a dataset must carry to be fit.
func RegressionColumns() []string {
	return []string{ColPower, ColPOA, ColTAmb, ColWVel}
}

// ReportingCondition is the standardized environmental point (plane-of-array
// irradiance, ambient temperature, wind velocity) at which plant capacity is
// evaluated.
type ReportingCondition struct {
	POA  float64 `json:"poa"`
	TAmb float64 `json:"t_amb"`
	WVel float64 `json:"w_vel"`
}

// Point returns the condition keyed by regression column name, matching the
// feature schema the models were fit on.
func (rc ReportingCondition) Point() map[string]float64 {
	return map[string]float64{
		ColPOA:  rc.POA,
		ColTAmb: rc.TAmb,
		ColWVel: rc.WVel,
	}
}
