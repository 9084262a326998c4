// Package binding holds key combination bindings and the ordered table the
// dispatcher matches against.
package binding

import (
	"fmt"

	"keyswitch/internal/action"
	"keyswitch/internal/keys"
)

// Binding maps a combination to an action plus suppression flags.
type Binding struct {
	Combination keys.Combination
	Action      action.Action
	// BlockDefault withholds the triggering key event from the foreground
	// application.
	BlockDefault bool
	// BlockOriginalCombo also blocks the native shortcut the operating system
	// binds to the same system function.
	BlockOriginalCombo bool

	autoBlocker bool
}

// New returns a binding that blocks the default key handling.
func New(combo keys.Combination, act action.Action) Binding {
	return Binding{
		Combination:  combo,
		Action:       act,
		BlockDefault: true,
	}
}

// newAutoBlocker returns a synthetic binding that only swallows combo.
func newAutoBlocker(combo keys.Combination) Binding {
	return Binding{
		Combination:  combo,
		Action:       action.DoNothing{},
		BlockDefault: true,
		autoBlocker:  true,
	}
}

func (b Binding) WithBlockDefault(block bool) Binding {
	b.BlockDefault = block
	return b
}

func (b Binding) WithBlockOriginalCombo(block bool) Binding {
	b.BlockOriginalCombo = block
	return b
}

// IsAutoBlocker reports whether b was synthesized to block a system
// combination.
func (b Binding) IsAutoBlocker() bool { return b.autoBlocker }

func (b Binding) String() string {
	if b.autoBlocker {
		return fmt.Sprintf("[AUTO-BLOCK] %-20s → (blocked)", b.Combination)
	}
	suffix := ""
	if !b.BlockDefault {
		suffix = " (pass-through)"
	}
	return fmt.Sprintf("%-30s → %s%s", b.Combination, b.Action, suffix)
}
