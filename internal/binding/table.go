package binding

import (
	"cmp"
	"log/slog"
	"slices"

	"keyswitch/internal/action"
	"keyswitch/internal/keys"
)

// Table is an ordered collection of bindings. Bindings with more keys come
// first so the most specific combination always wins; equal sizes keep
// insertion order. Two distinct combinations of equal size can never both be
// satisfied before the larger one that contains them, so no further
// tie-break is needed.
//
// A Table is built before dispatch starts and must not be mutated once it is
// handed to a dispatcher.
type Table struct {
	bindings []Binding
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Append inserts b and restores the specificity ordering.
func (t *Table) Append(b Binding) {
	t.bindings = append(t.bindings, b)
	slices.SortStableFunc(t.bindings, func(x, y Binding) int {
		return cmp.Compare(y.Combination.Len(), x.Combination.Len())
	})
}

// Add registers b. When b asks to block its original combination, every
// native combination reported by lookup for b's action that is not yet in
// the table gets a synthetic blocker. Returns the blockers that were added.
func (t *Table) Add(b Binding, lookup action.ComboLookup) []Binding {
	t.Append(b)
	if !b.BlockOriginalCombo {
		return nil
	}

	var added []Binding
	for _, combo := range action.SystemCombinations(b.Action, lookup) {
		if combo.IsZero() || t.Contains(combo) {
			continue
		}
		blocker := newAutoBlocker(combo)
		t.Append(blocker)
		added = append(added, blocker)
		slog.Debug("[binding] synthesized blocker for system combination",
			"combination", combo.String(), "action", b.Action.String())
	}
	return added
}

// Contains reports whether a binding with an equal combination exists.
func (t *Table) Contains(combo keys.Combination) bool {
	for _, b := range t.bindings {
		if b.Combination.Equal(combo) {
			return true
		}
	}
	return false
}

// FirstMatch returns the first binding, in table order, whose combination is
// held in pressed.
func (t *Table) FirstMatch(pressed keys.Set) (Binding, bool) {
	if t == nil {
		return Binding{}, false
	}
	for _, b := range t.bindings {
		if b.Combination.Matches(pressed) {
			return b, true
		}
	}
	return Binding{}, false
}

// Bindings returns a copy of the bindings in match order.
func (t *Table) Bindings() []Binding {
	if t == nil {
		return nil
	}
	return slices.Clone(t.bindings)
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bindings)
}
