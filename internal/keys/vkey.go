// Package keys models logical key identities and key combinations.
//
// Key codes follow the Win32 virtual-key numbering so that values coming
// from the low-level keyboard hook can be used without translation.
package keys

import "fmt"

// VKey represents a Win32 virtual-key code.
type VKey uint32

// Count is the number of representable key codes. Codes at or above Count
// are ignored by the key state.
const Count = 256

const (
	Back     VKey = 0x08
	Tab      VKey = 0x09
	Return   VKey = 0x0D
	Shift    VKey = 0x10
	Control  VKey = 0x11
	Menu     VKey = 0x12 // Alt
	Pause    VKey = 0x13
	Capital  VKey = 0x14 // CapsLock
	Escape   VKey = 0x1B
	Space    VKey = 0x20
	PageUp   VKey = 0x21
	PageDown VKey = 0x22
	End      VKey = 0x23
	Home     VKey = 0x24
	Left     VKey = 0x25
	Up       VKey = 0x26
	Right    VKey = 0x27
	Down     VKey = 0x28
	Snapshot VKey = 0x2C
	Insert   VKey = 0x2D
	Delete   VKey = 0x2E
	LWin     VKey = 0x5B
	RWin     VKey = 0x5C
	Apps     VKey = 0x5D
	F1       VKey = 0x70
	F24      VKey = 0x87
	NumLock  VKey = 0x90
	Scroll   VKey = 0x91
	LShift   VKey = 0xA0
	RShift   VKey = 0xA1
	LControl VKey = 0xA2
	RControl VKey = 0xA3
	LMenu    VKey = 0xA4
	RMenu    VKey = 0xA5
	Oem3     VKey = 0xC0 // `~ on US layouts
)

// Letter returns the key code for an ASCII letter or digit.
func Letter(ch byte) VKey {
	if ch >= 'a' && ch <= 'z' {
		ch -= 'a' - 'A'
	}
	return VKey(ch)
}

// Normalize maps left/right modifier variants to one canonical identity.
// Both Windows keys collapse onto LWin.
func Normalize(vk VKey) VKey {
	switch vk {
	case LShift, RShift:
		return Shift
	case LControl, RControl:
		return Control
	case LMenu, RMenu:
		return Menu
	case LWin, RWin:
		return LWin
	default:
		return vk
	}
}

// Valid reports whether vk fits the fixed-size key state.
func (vk VKey) Valid() bool {
	return vk > 0 && vk < Count
}

var keyNames = map[VKey]string{
	Back:     "Backspace",
	Tab:      "Tab",
	Return:   "Enter",
	Shift:    "Shift",
	Control:  "Ctrl",
	Menu:     "Alt",
	Pause:    "Pause",
	Capital:  "CapsLock",
	Escape:   "Esc",
	Space:    "Space",
	PageUp:   "PageUp",
	PageDown: "PageDown",
	End:      "End",
	Home:     "Home",
	Left:     "Left",
	Up:       "Up",
	Right:    "Right",
	Down:     "Down",
	Snapshot: "PrintScreen",
	Insert:   "Insert",
	Delete:   "Delete",
	LWin:     "Win",
	RWin:     "RWin",
	Apps:     "Apps",
	NumLock:  "NumLock",
	Scroll:   "ScrollLock",
	LShift:   "LShift",
	RShift:   "RShift",
	LControl: "LCtrl",
	RControl: "RCtrl",
	LMenu:    "LAlt",
	RMenu:    "RAlt",
	Oem3:     "`",
}

// String returns a human-readable key name.
func (vk VKey) String() string {
	if name, ok := keyNames[vk]; ok {
		return name
	}
	if (vk >= 'A' && vk <= 'Z') || (vk >= '0' && vk <= '9') {
		return string(rune(vk))
	}
	if vk >= F1 && vk <= F24 {
		return fmt.Sprintf("F%d", vk-F1+1)
	}
	return fmt.Sprintf("0x%02X", uint32(vk))
}
