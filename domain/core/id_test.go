package core

import "testing"

func TestNewID_UniqueAndNonEmpty(t *testing.T) {
	a := NewID()
	b := NewID()
	if a.IsEmpty() || b.IsEmpty() {
		t.Fatal("generated IDs must not be empty")
	}
	if a == b {
		t.Errorf("consecutive IDs collide: %s", a)
	}
	var zero ID
	if !zero.IsEmpty() {
		t.Error("zero-value ID must report empty")
	}
}

func TestParseRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID(id.String())
	if err != nil {
		t.Fatalf("ParseRunID(%s): %v", id, err)
	}
	if parsed != id {
		t.Errorf("parsed = %s, want %s", parsed, id)
	}

	for _, bad := range []string{"", "   ", "not-a-uuid"} {
		if _, err := ParseRunID(bad); err == nil {
			t.Errorf("ParseRunID(%q) succeeded, want error", bad)
		}
	}
}
