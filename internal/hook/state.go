package hook

import (
	"sync/atomic"

	"keyswitch/internal/keys"
)

// State is the live key state shared by every dispatch call.
// Each field is independently atomic; no transition needs more than one
// field to change together.
type State struct {
	// active holds one flag per canonical key.
	active [keys.Count]atomic.Bool
	// suppressed is the physical key whose down event was swallowed and
	// whose up event must be swallowed too. Zero means none.
	suppressed atomic.Uint32
}

// NewState returns an idle state.
func NewState() *State {
	return &State{}
}

func (s *State) setActive(vk keys.VKey, down bool) {
	if !vk.Valid() {
		return
	}
	s.active[vk].Store(down)
}

// IsActive reports whether the canonical key vk is currently held.
func (s *State) IsActive(vk keys.VKey) bool {
	if !vk.Valid() {
		return false
	}
	return s.active[vk].Load()
}

// Pressed returns the set of canonical keys currently held.
func (s *State) Pressed() keys.Set {
	var pressed keys.Set
	for i := range s.active {
		if s.active[i].Load() {
			pressed.Add(keys.VKey(i))
		}
	}
	return pressed
}

// Suppressed returns the physical key currently being withheld, if any.
func (s *State) Suppressed() (keys.VKey, bool) {
	vk := keys.VKey(s.suppressed.Load())
	return vk, vk != 0
}

func (s *State) suppress(vk keys.VKey) {
	s.suppressed.Store(uint32(vk))
}

// releaseSuppressed clears the suppression slot if it holds vk.
func (s *State) releaseSuppressed(vk keys.VKey) bool {
	if vk == 0 {
		return false
	}
	return s.suppressed.CompareAndSwap(uint32(vk), 0)
}
