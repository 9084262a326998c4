package keys

import "strings"

// Combination is an unordered set of logical keys that must be held
// together. Members are unique; the slice order is only used for display.
// Construct via NewCombination, With or FromKeys.
type Combination struct {
	keys []VKey
}

// NewCombination returns a single-key combination.
func NewCombination(vk VKey) Combination {
	return Combination{keys: []VKey{vk}}
}

// FromKeys builds a combination from vks, dropping duplicates.
func FromKeys(vks ...VKey) Combination {
	var c Combination
	for _, vk := range vks {
		c = c.With(vk)
	}
	return c
}

// With returns a copy of c that also requires vk.
func (c Combination) With(vk VKey) Combination {
	if c.contains(vk) {
		return c
	}
	next := make([]VKey, len(c.keys), len(c.keys)+1)
	copy(next, c.keys)
	return Combination{keys: append(next, vk)}
}

// Keys returns a copy of the members in display order.
func (c Combination) Keys() []VKey {
	out := make([]VKey, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of keys in the combination.
func (c Combination) Len() int { return len(c.keys) }

// IsZero reports whether the combination has no keys.
func (c Combination) IsZero() bool { return len(c.keys) == 0 }

// Matches reports whether every key of c is held in pressed.
// Extra pressed keys do not prevent a match. An empty combination never
// matches.
func (c Combination) Matches(pressed Set) bool {
	if len(c.keys) == 0 {
		return false
	}
	for _, vk := range c.keys {
		if !pressed.Has(vk) {
			return false
		}
	}
	return true
}

// Equal reports whether c and other hold the same keys, in any order.
func (c Combination) Equal(other Combination) bool {
	if len(c.keys) != len(other.keys) {
		return false
	}
	for _, vk := range c.keys {
		if !other.contains(vk) {
			return false
		}
	}
	return true
}

// String renders the combination as "Ctrl + Shift + A".
func (c Combination) String() string {
	names := make([]string, len(c.keys))
	for i, vk := range c.keys {
		names[i] = vk.String()
	}
	return strings.Join(names, " + ")
}

func (c Combination) contains(vk VKey) bool {
	for _, k := range c.keys {
		if k == vk {
			return true
		}
	}
	return false
}
