// Package testkit generates synthetic plant operating data for tests:
// measured and simulated datasets following a known response surface, so
// regression outcomes are predictable.
package testkit

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rlpappan/pvcaptest/domain/frame"
)

// Reference plant response coefficients. Power is linear in irradiance with
// quadratic and weather interaction losses, no intercept.
const (
	coeffPOA     = 950.0
	coeffPOASq   = -0.2
	coeffPOATAmb = -3.5
	coeffPOAWVel = -12.0
)

// PowerAt evaluates the reference plant response at one operating point.
func PowerAt(poa, tAmb, wVel float64) float64 {
	return coeffPOA*poa + coeffPOASq*poa*poa + coeffPOATAmb*poa*tAmb + coeffPOAWVel*poa*wVel
}

// Plant describes one synthetic dataset. Noise is a deterministic alternating
// disturbance of the given amplitude; Phase offsets the alternation so two
// plants with the same shape get independent-looking residuals.
type Plant struct {
	Rows  int
	Noise float64
	Phase int
}

// Columns generates the dataset columns in regression order.
func (p Plant) Columns() (power, poa, tAmb, wVel []float64) {
	power = make([]float64, p.Rows)
	poa = make([]float64, p.Rows)
	tAmb = make([]float64, p.Rows)
	wVel = make([]float64, p.Rows)
	for i := 0; i < p.Rows; i++ {
		poa[i] = 100 + 50*float64(i)
		tAmb[i] = 20 + float64(i%5)
		wVel[i] = 1 + float64(i%3)
		power[i] = PowerAt(poa[i], tAmb[i], wVel[i])
		power[i] += p.Noise * float64(1-2*((i+p.Phase)%2))
	}
	return power, poa, tAmb, wVel
}

// Frame builds the dataset as an unindexed frame.
func (p Plant) Frame() (*frame.Frame, error) {
	return p.frameWithIndex(nil)
}

// IndexedFrame builds the dataset with a time index starting at start and
// advancing by step per row.
func (p Plant) IndexedFrame(start time.Time, step time.Duration) (*frame.Frame, error) {
	index := make([]time.Time, p.Rows)
	for i := range index {
		index[i] = start.Add(time.Duration(i) * step)
	}
	return p.frameWithIndex(index)
}

func (p Plant) frameWithIndex(index []time.Time) (*frame.Frame, error) {
	power, poa, tAmb, wVel := p.Columns()
	f := frame.New(index)
	for _, col := range []struct {
		name   string
		values []float64
	}{
		{"power", power}, {"poa", poa}, {"t_amb", tAmb}, {"w_vel", wVel},
	} {
		if err := f.AddColumn(col.name, col.values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteCSV writes the dataset as a loader-compatible CSV file with
// five-minute timestamps.
func (p Plant) WriteCSV(path string) error {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	power, poa, tAmb, wVel := p.Columns()

	var b strings.Builder
	b.WriteString("timestamp,power,poa,t_amb,w_vel\n")
	for i := 0; i < p.Rows; i++ {
		ts := start.Add(time.Duration(i) * 5 * time.Minute)
		fmt.Fprintf(&b, "%s,%.3f,%g,%g,%g\n",
			ts.Format("2006-01-02 15:04:05"), power[i], poa[i], tAmb[i], wVel[i])
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
