package action

import (
	"fmt"
	"strings"
)

// SystemFunction identifies a built-in operating system function.
type SystemFunction int

const (
	SwitchLanguage SystemFunction = iota + 1
	SwitchLanguageBackward
	LockWorkstation
	ShowDesktop
	TaskManager
	ToggleCapsLock
)

var systemFunctionNames = map[SystemFunction]string{
	SwitchLanguage:         "switch-language",
	SwitchLanguageBackward: "switch-language-backward",
	LockWorkstation:        "lock-workstation",
	ShowDesktop:            "show-desktop",
	TaskManager:            "task-manager",
	ToggleCapsLock:         "toggle-capslock",
}

// SystemFunctions lists every known system function in declaration order.
func SystemFunctions() []SystemFunction {
	return []SystemFunction{
		SwitchLanguage,
		SwitchLanguageBackward,
		LockWorkstation,
		ShowDesktop,
		TaskManager,
		ToggleCapsLock,
	}
}

func (fn SystemFunction) String() string {
	if name, ok := systemFunctionNames[fn]; ok {
		return name
	}
	return fmt.Sprintf("system-function(%d)", int(fn))
}

// ParseSystemFunction resolves a config name like "switch-language".
func ParseSystemFunction(name string) (SystemFunction, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for fn, n := range systemFunctionNames {
		if n == normalized {
			return fn, true
		}
	}
	return 0, false
}
