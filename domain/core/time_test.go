package core

import (
	"testing"
	"time"
)

func TestTimestamp_Ordering(t *testing.T) {
	earlier := NewTimestamp(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	later := NewTimestamp(time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC))

	if !earlier.Before(later) {
		t.Error("earlier.Before(later) = false")
	}
	if earlier.After(later) {
		t.Error("earlier.After(later) = true")
	}
	if !later.After(earlier) {
		t.Error("later.After(earlier) = false")
	}
}

func TestTimestamp_Zero(t *testing.T) {
	var zero Timestamp
	if !zero.IsZero() {
		t.Error("zero-value timestamp must report zero")
	}
	if Now().IsZero() {
		t.Error("Now() must not be zero")
	}
}

func TestTimestamp_JSONRoundTrip(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	data, err := ts.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var back Timestamp
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if !back.Time().Equal(ts.Time()) {
		t.Errorf("round trip = %v, want %v", back.Time(), ts.Time())
	}
}
