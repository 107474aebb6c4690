package captest

import (
	"errors"

	"github.com/rlpappan/pvcaptest/domain/core"
)

// DatasetTag identifies which of the two test datasets a record belongs to.
type DatasetTag string

const (
	TagDAS DatasetTag = "das"
	TagSim DatasetTag = "sim"
)

// ErrEmptyHistory is the soft "no filters have been run" condition. Callers
// query history speculatively, so this is reported, not fatal.
var ErrEmptyHistory = errors.New("no filters have been run")

// FilterStep records one filtering operation applied to a dataset: which
// method ran, with what arguments, and the row counts it left behind.
type FilterStep struct {
	Tag       DatasetTag     `json:"tag"`
	Method    string         `json:"method"`
	Args      string         `json:"args"`
	Remaining int            `json:"remaining"`
	Removed   int            `json:"removed"`
	At        core.Timestamp `json:"at"`
}

// FilterLog is the append-only, per-dataset filter history. Step order within
// a dataset is chronological.
type FilterLog struct {
	das []FilterStep
	sim []FilterStep
}

// NewFilterLog creates an empty filter log.
func NewFilterLog() *FilterLog {
	return &FilterLog{}
}

// Append records a filter step under its dataset tag.
func (l *FilterLog) Append(step FilterStep) {
	if step.At.IsZero() {
		step.At = core.Now()
	}
	switch step.Tag {
	case TagSim:
		l.sim = append(l.sim, step)
	default:
		l.das = append(l.das, step)
	}
}

// Steps returns the recorded steps for one dataset in chronological order.
func (l *FilterLog) Steps(tag DatasetTag) []FilterStep {
	var src []FilterStep
	if tag == TagSim {
		src = l.sim
	} else {
		src = l.das
	}
	out := make([]FilterStep, len(src))
	copy(out, src)
	return out
}

// Merged combines the das and sim histories. When both datasets have records
// the das steps come first; when only one has records that history is
// returned alone; when neither has records it returns ErrEmptyHistory.
func (l *FilterLog) Merged() ([]FilterStep, error) {
	switch {
	case len(l.das) != 0 && len(l.sim) != 0:
		out := make([]FilterStep, 0, len(l.das)+len(l.sim))
		out = append(out, l.das...)
		out = append(out, l.sim...)
		return out, nil
	case len(l.das) != 0:
		return l.Steps(TagDAS), nil
	case len(l.sim) != 0:
		return l.Steps(TagSim), nil
	default:
		return nil, ErrEmptyHistory
	}
}
