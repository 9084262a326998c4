// Package sysaction performs binding actions against the Windows desktop:
// synthesized key presses, messages to the foreground window and the
// built-in system functions.
package sysaction

import (
	"errors"

	"keyswitch/internal/action"
)

// ErrNoForegroundWindow is returned when a message must be posted but no
// window currently has focus.
var ErrNoForegroundWindow = errors.New("no foreground window")

const (
	wmCommand                = 0x0111
	wmInputLangChangeRequest = 0x0050

	inputLangChangeForward  = 0x0002
	inputLangChangeBackward = 0x0004

	// trayShowDesktop is the taskbar command id behind "Show the desktop".
	trayShowDesktop = 419

	taskManagerExe = "taskmgr.exe"
	trayClassName  = "Shell_TrayWnd"
)

// Executor implements action.Executor.
type Executor struct{}

var _ action.Executor = (*Executor)(nil)

// New returns an executor for the interactive desktop.
func New() *Executor {
	return &Executor{}
}

// languageRequest returns the WM_INPUTLANGCHANGEREQUEST direction for the
// language-switch functions.
func languageRequest(fn action.SystemFunction) (uintptr, bool) {
	switch fn {
	case action.SwitchLanguage:
		return inputLangChangeForward, true
	case action.SwitchLanguageBackward:
		return inputLangChangeBackward, true
	}
	return 0, false
}
