package inject

import (
	"testing"

	"github.com/google/uuid"
)

func TestMarker(t *testing.T) {
	if Marker() == 0 {
		t.Fatal("Marker() = 0, hardware input would be treated as injected")
	}
	if Marker() != Marker() {
		t.Fatal("Marker() is not stable")
	}
	if !IsInjected(Marker()) {
		t.Fatal("IsInjected(Marker()) = false")
	}
	if IsInjected(0) {
		t.Fatal("IsInjected(0) = true")
	}
	if IsInjected(Marker() + 1) {
		t.Fatal("IsInjected(Marker()+1) = true")
	}
}

func TestNewMarkerNeverZero(t *testing.T) {
	if got := newMarker(uuid.UUID{}); got != 1 {
		t.Fatalf("newMarker(zero uuid) = %d, want 1", got)
	}
	id := uuid.MustParse("00000000-0000-0000-ffff-ffffffffffff")
	if got := newMarker(id); got != 1 {
		t.Fatalf("newMarker(%s) = %d, want 1 (low 8 bytes are zero)", id, got)
	}
}
