// Package action defines the closed set of things a binding can do when its
// combination is pressed.
package action

import (
	"errors"
	"fmt"

	"keyswitch/internal/keys"
)

// ErrUnsupported is returned by executors that cannot perform an action on
// the current platform.
var ErrUnsupported = errors.New("action is not supported on this platform")

// Executor provides the side-effecting primitives actions are built from.
// Implementations must not block: they run on the keyboard hook thread.
type Executor interface {
	SynthesizeKey(vk keys.VKey) error
	PostToForeground(msg uint32, wParam, lParam uintptr) error
	InvokeSystemFunction(fn SystemFunction) error
}

// ComboLookup reports the combinations the operating system currently binds
// to a system function. It is consulted only while registering bindings.
type ComboLookup interface {
	SystemCombinations(fn SystemFunction) []keys.Combination
}

// Action is one of System, PressKey, PostMessage or DoNothing.
type Action interface {
	// Execute performs the action. Errors are diagnostics only.
	Execute(ex Executor) error
	String() string
	isAction()
}

// System invokes a built-in operating system function.
type System struct {
	Function SystemFunction
}

// PressKey synthesizes a press and release of Key.
type PressKey struct {
	Key keys.VKey
}

// PostMessage posts a window message to the foreground window.
type PostMessage struct {
	Msg    uint32
	WParam uintptr
	LParam uintptr
}

// DoNothing is the no-op action used by blockers.
type DoNothing struct{}

func (System) isAction()      {}
func (PressKey) isAction()    {}
func (PostMessage) isAction() {}
func (DoNothing) isAction()   {}

func (a System) Execute(ex Executor) error {
	return ex.InvokeSystemFunction(a.Function)
}

func (a PressKey) Execute(ex Executor) error {
	return ex.SynthesizeKey(a.Key)
}

func (a PostMessage) Execute(ex Executor) error {
	return ex.PostToForeground(a.Msg, a.WParam, a.LParam)
}

func (DoNothing) Execute(Executor) error { return nil }

func (a System) String() string      { return a.Function.String() }
func (a PressKey) String() string    { return "press key " + a.Key.String() }
func (a PostMessage) String() string { return fmt.Sprintf("post message 0x%X", a.Msg) }
func (DoNothing) String() string     { return "do nothing" }

// SystemCombinations returns the native shortcuts that already trigger what
// a does. Only System actions have any.
func SystemCombinations(a Action, lookup ComboLookup) []keys.Combination {
	sys, ok := a.(System)
	if !ok || lookup == nil {
		return nil
	}
	return lookup.SystemCombinations(sys.Function)
}
