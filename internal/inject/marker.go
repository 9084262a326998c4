// Package inject tags keyboard input synthesized by this process so the
// keyboard hook can recognize and ignore its own events.
package inject

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// marker is generated once per process. It is random so that other tools
// using well-known sentinel values cannot collide with it.
var marker = newMarker(uuid.New())

func newMarker(id uuid.UUID) uintptr {
	v := uintptr(binary.LittleEndian.Uint64(id[:8]))
	if v == 0 {
		// The hook sees zero for genuine hardware input.
		v = 1
	}
	return v
}

// Marker returns the value every synthesized input event must carry in its
// extra-info field.
func Marker() uintptr {
	return marker
}

// IsInjected reports whether extraInfo was produced by this process.
func IsInjected(extraInfo uintptr) bool {
	return extraInfo == marker
}
