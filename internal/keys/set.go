package keys

import "math/bits"

// Set is a fixed-size set of key codes. The zero value is empty.
// It is a value type and never allocates, so it is safe to build on the
// hook thread for every event.
type Set struct {
	words [Count / 64]uint64
}

// SetOf returns a set holding the given keys.
func SetOf(vks ...VKey) Set {
	var s Set
	for _, vk := range vks {
		s.Add(vk)
	}
	return s
}

// Add inserts vk. Out-of-range codes are ignored.
func (s *Set) Add(vk VKey) {
	if vk >= Count {
		return
	}
	s.words[vk/64] |= 1 << (vk % 64)
}

// Has reports whether vk is in the set.
func (s Set) Has(vk VKey) bool {
	if vk >= Count {
		return false
	}
	return s.words[vk/64]&(1<<(vk%64)) != 0
}

// Len returns the number of keys in the set.
func (s Set) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Keys returns the members in ascending code order.
func (s Set) Keys() []VKey {
	out := make([]VKey, 0, s.Len())
	for i, w := range s.words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			out = append(out, VKey(i*64+bit))
			w &^= 1 << bit
		}
	}
	return out
}
