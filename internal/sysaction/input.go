package sysaction

import "keyswitch/internal/keys"

const (
	inputKeyboard  = 1
	keyEventFKeyUp = 0x0002
)

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors INPUT for the keyboard variant. The padding covers the
// larger MOUSEINPUT member of the union so the size matches the Win32
// definition on both 32-bit and 64-bit Windows.
type input struct {
	inputType uint32
	ki        keybdInput
	padding   [8]byte
}

// keyPress returns a down/up pair for vk tagged with marker.
func keyPress(vk keys.VKey, marker uintptr) [2]input {
	down := input{
		inputType: inputKeyboard,
		ki: keybdInput{
			wVk:         uint16(vk),
			dwExtraInfo: marker,
		},
	}
	up := down
	up.ki.dwFlags = keyEventFKeyUp
	return [2]input{down, up}
}
