// Package frame provides the tabular data abstraction consumed by the
// capacity-test engine: time-indexed rows with named float64 columns.
package frame

import (
	"fmt"
	"time"
)

// MissingColumnError reports a required column that is absent from a frame.
// Column access is by name only; positional lookups are not supported.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

// Frame is a table of time-indexed rows with named numeric columns.
// The index is optional: a frame built purely from columns has a nil index.
type Frame struct {
	index []time.Time
	order []string
	cols  map[string][]float64
}

// New creates an empty frame with the given time index. A nil index is valid;
// row count is then established by the first column added.
func New(index []time.Time) *Frame {
	return &Frame{
		index: index,
		cols:  make(map[string][]float64),
	}
}

// FromColumns builds a frame from an ordered set of named columns.
func FromColumns(index []time.Time, order []string, cols map[string][]float64) (*Frame, error) {
	f := New(index)
	for _, name := range order {
		values, ok := cols[name]
		if !ok {
			return nil, &MissingColumnError{Column: name}
		}
		if err := f.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.order) > 0 {
		return len(f.cols[f.order[0]])
	}
	return len(f.index)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Index returns the time index. May be nil for frames built from columns only.
func (f *Frame) Index() []time.Time {
	return f.index
}

// AddColumn appends a named column. The length must match existing rows.
func (f *Frame) AddColumn(name string, values []float64) error {
	if _, exists := f.cols[name]; exists {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(f.order) > 0 || len(f.index) > 0 {
		if n := f.Len(); len(values) != n {
			return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(values), n)
		}
	}
	f.order = append(f.order, name)
	f.cols[name] = values
	return nil
}

// Column returns the values of a named column. The returned slice is the
// frame's backing storage; callers that mutate it should Copy first.
func (f *Frame) Column(name string) ([]float64, error) {
	values, ok := f.cols[name]
	if !ok {
		return nil, &MissingColumnError{Column: name}
	}
	return values, nil
}

// Require validates that every named column is present, failing with a
// MissingColumnError for the first absent one.
func (f *Frame) Require(names ...string) error {
	for _, name := range names {
		if _, ok := f.cols[name]; !ok {
			return &MissingColumnError{Column: name}
		}
	}
	return nil
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		cols: make(map[string][]float64, len(f.cols)),
	}
	if f.index != nil {
		out.index = make([]time.Time, len(f.index))
		copy(out.index, f.index)
	}
	out.order = make([]string, len(f.order))
	copy(out.order, f.order)
	for name, values := range f.cols {
		dup := make([]float64, len(values))
		copy(dup, values)
		out.cols[name] = dup
	}
	return out
}

// View returns a deep-copied frame restricted to the named columns, preserving
// the time index. Fails with MissingColumnError for absent columns.
func (f *Frame) View(names ...string) (*Frame, error) {
	if err := f.Require(names...); err != nil {
		return nil, err
	}
	out := New(nil)
	if f.index != nil {
		out.index = make([]time.Time, len(f.index))
		copy(out.index, f.index)
	}
	for _, name := range names {
		dup := make([]float64, len(f.cols[name]))
		copy(dup, f.cols[name])
		if err := out.AddColumn(name, dup); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SelectMask returns a new frame keeping only rows where keep[i] is true.
func (f *Frame) SelectMask(keep []bool) (*Frame, error) {
	if len(keep) != f.Len() {
		return nil, fmt.Errorf("mask has %d entries, frame has %d rows", len(keep), f.Len())
	}
	out := New(nil)
	if f.index != nil {
		for i, ok := range keep {
			if ok {
				out.index = append(out.index, f.index[i])
			}
		}
	}
	for _, name := range f.order {
		src := f.cols[name]
		var dst []float64
		for i, ok := range keep {
			if ok {
				dst = append(dst, src[i])
			}
		}
		out.order = append(out.order, name)
		out.cols[name] = dst
	}
	return out, nil
}

// AppendRow appends one row. Values must be provided for every column; the
// timestamp extends the index only when the frame carries one.
func (f *Frame) AppendRow(ts time.Time, values map[string]float64) error {
	for _, name := range f.order {
		if _, ok := values[name]; !ok {
			return &MissingColumnError{Column: name}
		}
	}
	for _, name := range f.order {
		f.cols[name] = append(f.cols[name], values[name])
	}
	if f.index != nil {
		f.index = append(f.index, ts)
	}
	return nil
}

// Equal reports whether two frames hold identical columns, rows and index.
func (f *Frame) Equal(other *Frame) bool {
	if other == nil || f.Len() != other.Len() || len(f.order) != len(other.order) {
		return false
	}
	for i, name := range f.order {
		if other.order[i] != name {
			return false
		}
		a, b := f.cols[name], other.cols[name]
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	if len(f.index) != len(other.index) {
		return false
	}
	for i := range f.index {
		if !f.index[i].Equal(other.index[i]) {
			return false
		}
	}
	return true
}
