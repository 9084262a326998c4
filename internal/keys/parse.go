package keys

import (
	"fmt"
	"strconv"
	"strings"
)

var keyByName = map[string]VKey{
	"SHIFT":       Shift,
	"LSHIFT":      Shift,
	"RSHIFT":      Shift,
	"CTRL":        Control,
	"CONTROL":     Control,
	"LCTRL":       Control,
	"RCTRL":       Control,
	"ALT":         Menu,
	"MENU":        Menu,
	"LALT":        Menu,
	"RALT":        Menu,
	"WIN":         LWin,
	"SUPER":       LWin,
	"LWIN":        LWin,
	"RWIN":        LWin,
	"CAPSLOCK":    Capital,
	"CAPS":        Capital,
	"CAPITAL":     Capital,
	"SPACE":       Space,
	"TAB":         Tab,
	"ENTER":       Return,
	"RETURN":      Return,
	"ESC":         Escape,
	"ESCAPE":      Escape,
	"BACKSPACE":   Back,
	"DELETE":      Delete,
	"DEL":         Delete,
	"INSERT":      Insert,
	"HOME":        Home,
	"END":         End,
	"PAGEUP":      PageUp,
	"PAGEDOWN":    PageDown,
	"LEFT":        Left,
	"RIGHT":       Right,
	"UP":          Up,
	"DOWN":        Down,
	"PAUSE":       Pause,
	"PRINTSCREEN": Snapshot,
	"APPS":        Apps,
	"NUMLOCK":     NumLock,
	"SCROLLLOCK":  Scroll,
	"BACKQUOTE":   Oem3,
	"GRAVE":       Oem3,
	"`":           Oem3,
}

// ParseKey parses a single key name such as "CapsLock", "F13", "A" or
// "0x14". Left/right modifier names resolve to their canonical identity.
func ParseKey(raw string) (VKey, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return 0, fmt.Errorf("missing key token")
	}

	if vk, ok := keyByName[token]; ok {
		return vk, nil
	}

	if len(token) == 1 {
		ch := token[0]
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			return Letter(ch), nil
		}
	}

	if len(token) >= 2 && token[0] == 'F' {
		if n, err := strconv.Atoi(token[1:]); err == nil && n >= 1 && n <= 24 {
			return F1 + VKey(n-1), nil
		}
	}

	if strings.HasPrefix(token, "0X") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid hex key %q", raw)
		}
		vk := Normalize(VKey(value))
		if !vk.Valid() {
			return 0, fmt.Errorf("key code %s is not a valid virtual key", token)
		}
		return vk, nil
	}

	return 0, fmt.Errorf("unknown key %q", raw)
}

// ParseCombination parses a combination like "Ctrl+Shift+Esc" or
// "CapsLock". Duplicate keys are collapsed.
func ParseCombination(spec string) (Combination, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Combination{}, fmt.Errorf("key combination is empty")
	}

	var combo Combination
	for _, token := range strings.Split(raw, "+") {
		vk, err := ParseKey(token)
		if err != nil {
			return Combination{}, fmt.Errorf("key combination %q: %w", raw, err)
		}
		combo = combo.With(vk)
	}
	return combo, nil
}
