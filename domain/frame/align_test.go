package frame

import (
	"math"
	"testing"
	"time"
)

func indexedFrame(t *testing.T, start time.Time, minutes []int, power []float64) *Frame {
	t.Helper()
	index := make([]time.Time, len(minutes))
	for i, m := range minutes {
		index[i] = start.Add(time.Duration(m) * time.Minute)
	}
	f := New(index)
	if err := f.AddColumn("power", power); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestAlignPair_SharedTimestamps(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := indexedFrame(t, start, []int{0, 5, 10, 15}, []float64{1, 2, 3, 4})
	b := indexedFrame(t, start, []int{5, 15, 20}, []float64{20, 40, 50})

	alignedA, alignedB, err := AlignPair(a, b)
	if err != nil {
		t.Fatalf("AlignPair: %v", err)
	}
	if alignedA.Len() != 2 || alignedB.Len() != 2 {
		t.Fatalf("aligned lengths = %d and %d, want 2 each", alignedA.Len(), alignedB.Len())
	}
	pa, _ := alignedA.Column("power")
	pb, _ := alignedB.Column("power")
	if pa[0] != 2 || pa[1] != 4 {
		t.Errorf("aligned a power = %v, want [2 4]", pa)
	}
	if pb[0] != 20 || pb[1] != 40 {
		t.Errorf("aligned b power = %v, want [20 40]", pb)
	}
	for i := range alignedA.Index() {
		if !alignedA.Index()[i].Equal(alignedB.Index()[i]) {
			t.Errorf("index %d differs between aligned frames", i)
		}
	}

	// originals untouched
	if a.Len() != 4 || b.Len() != 3 {
		t.Error("alignment must not modify the inputs")
	}
}

func TestAlignPair_NoOverlap(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := indexedFrame(t, start, []int{0, 5}, []float64{1, 2})
	b := indexedFrame(t, start, []int{10, 15}, []float64{3, 4})
	if _, _, err := AlignPair(a, b); err == nil {
		t.Fatal("expected error for frames with no shared timestamps")
	}
}

func TestAlignPair_RequiresIndex(t *testing.T) {
	a := New(nil)
	a.AddColumn("power", []float64{1, 2})
	b := indexedFrame(t, time.Now(), []int{0, 5}, []float64{1, 2})
	if _, _, err := AlignPair(a, b); err == nil {
		t.Fatal("expected error for unindexed frame")
	}
}

func TestDropNaN(t *testing.T) {
	f := New(nil)
	f.AddColumn("power", []float64{1, math.NaN(), 3, 4})
	f.AddColumn("poa", []float64{10, 20, math.NaN(), 40})

	clean, err := f.DropNaN("power", "poa")
	if err != nil {
		t.Fatalf("DropNaN: %v", err)
	}
	if clean.Len() != 2 {
		t.Fatalf("got %d rows, want 2", clean.Len())
	}
	power, _ := clean.Column("power")
	if power[0] != 1 || power[1] != 4 {
		t.Errorf("power = %v, want [1 4]", power)
	}
	if f.Len() != 4 {
		t.Error("DropNaN must not modify the input")
	}
}

func TestDropNaN_MissingColumn(t *testing.T) {
	f := New(nil)
	f.AddColumn("power", []float64{1, 2})
	if _, err := f.DropNaN("poa"); err == nil {
		t.Fatal("expected error for missing column")
	}
}
