package frame

import (
	"fmt"
	"math"
)

// AlignPair restricts two time-indexed frames to their shared timestamps, in
// the first frame's order. Measured and simulated datasets rarely cover the
// exact same intervals; regression requires both on one grid. Duplicate
// timestamps pair up first-to-first.
func AlignPair(a, b *Frame) (*Frame, *Frame, error) {
	if a.Index() == nil || b.Index() == nil {
		return nil, nil, fmt.Errorf("alignment requires time-indexed frames")
	}

	bByTime := make(map[int64]int, b.Len())
	for i, ts := range b.Index() {
		if _, seen := bByTime[ts.UnixNano()]; !seen {
			bByTime[ts.UnixNano()] = i
		}
	}

	keepA := make([]bool, a.Len())
	keepB := make([]bool, b.Len())
	matched := 0
	for i, ts := range a.Index() {
		j, ok := bByTime[ts.UnixNano()]
		if !ok || keepB[j] {
			continue
		}
		keepA[i] = true
		keepB[j] = true
		matched++
	}
	if matched == 0 {
		return nil, nil, fmt.Errorf("frames share no timestamps")
	}

	alignedA, err := a.SelectMask(keepA)
	if err != nil {
		return nil, nil, err
	}
	alignedB, err := b.SelectMask(keepB)
	if err != nil {
		return nil, nil, err
	}
	return alignedA, alignedB, nil
}

// DropNaN returns a copy of the frame without rows holding NaN in any of the
// named columns. Loaders emit NaN for unparsable cells; those rows cannot
// enter a fit.
func (f *Frame) DropNaN(names ...string) (*Frame, error) {
	if err := f.Require(names...); err != nil {
		return nil, err
	}
	keep := make([]bool, f.Len())
	for i := range keep {
		keep[i] = true
	}
	for _, name := range names {
		values := f.cols[name]
		for i, v := range values {
			if math.IsNaN(v) {
				keep[i] = false
			}
		}
	}
	return f.SelectMask(keep)
}
