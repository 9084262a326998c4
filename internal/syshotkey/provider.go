// Package syshotkey reports which key combinations the operating system
// binds to each system function, reading the user's registry settings and
// falling back to the stock Windows defaults.
package syshotkey

import (
	"errors"
	"log/slog"
	"strings"

	"keyswitch/internal/action"
	"keyswitch/internal/keys"
)

// ErrNotFound is returned by a ValueReader when the key or value is absent.
var ErrNotFound = errors.New("registry value not found")

// ValueReader reads a string value below HKEY_CURRENT_USER.
type ValueReader interface {
	ReadString(subkey, name string) (string, error)
}

// parseFunc converts a registry value into combinations. ok=false means the
// value is not recognised and the next value (or the default) is used.
// ok=true with no combinations means the hotkey is explicitly disabled.
type parseFunc func(value string) (combos []keys.Combination, ok bool)

type location struct {
	subkey     string
	valueNames []string
	parse      parseFunc
}

const (
	keyboardToggleKey = `Keyboard Layout\Toggle`
	explorerAdvKey    = `Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`
	policiesSystemKey = `Software\Microsoft\Windows\CurrentVersion\Policies\System`
)

func locationFor(fn action.SystemFunction) (location, bool) {
	switch fn {
	case action.SwitchLanguage, action.SwitchLanguageBackward:
		return location{keyboardToggleKey, []string{"Hotkey", "Language Hotkey"}, parseLanguageHotkey}, true
	case action.LockWorkstation:
		return location{explorerAdvKey, []string{"LockWorkstationHotkey"}, parseWinKeyCombo}, true
	case action.ShowDesktop:
		return location{explorerAdvKey, []string{"ShowDesktopHotkey"}, parseWinKeyCombo}, true
	case action.TaskManager:
		return location{policiesSystemKey, []string{"TaskManagerHotkey"}, parseTaskManagerHotkey}, true
	}
	return location{}, false
}

// DefaultCombination returns the stock Windows combination for fn.
func DefaultCombination(fn action.SystemFunction) (keys.Combination, bool) {
	switch fn {
	case action.SwitchLanguage, action.SwitchLanguageBackward:
		return keys.FromKeys(keys.Menu, keys.Shift), true
	case action.LockWorkstation:
		return keys.FromKeys(keys.LWin, keys.Letter('L')), true
	case action.ShowDesktop:
		return keys.FromKeys(keys.LWin, keys.Letter('D')), true
	case action.TaskManager:
		return keys.FromKeys(keys.Control, keys.Shift, keys.Escape), true
	}
	return keys.Combination{}, false
}

// Provider implements action.ComboLookup.
type Provider struct {
	reader ValueReader
}

var _ action.ComboLookup = (*Provider)(nil)

// New returns a provider backed by the current user's registry.
func New() *Provider {
	return NewWithReader(registryReader{})
}

// NewWithReader returns a provider backed by r. A nil reader always falls
// back to the defaults.
func NewWithReader(r ValueReader) *Provider {
	return &Provider{reader: r}
}

// SystemCombinations returns the combinations bound to fn. Functions without
// a known registry location (CapsLock) have none.
func (p *Provider) SystemCombinations(fn action.SystemFunction) []keys.Combination {
	loc, ok := locationFor(fn)
	if !ok {
		return nil
	}

	if combos, found := p.lookup(loc); found {
		slog.Debug("[syshotkey] using registry combination", "function", fn.String(), "combinations", len(combos))
		return combos
	}

	def, ok := DefaultCombination(fn)
	if !ok {
		return nil
	}
	slog.Debug("[syshotkey] using default combination", "function", fn.String(), "combination", def.String())
	return []keys.Combination{def}
}

func (p *Provider) lookup(loc location) ([]keys.Combination, bool) {
	if p.reader == nil {
		return nil, false
	}
	for _, name := range loc.valueNames {
		value, err := p.reader.ReadString(loc.subkey, name)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				slog.Debug("[syshotkey] registry read failed", "subkey", loc.subkey, "value", name, "error", err)
			}
			continue
		}
		if combos, ok := loc.parse(value); ok {
			return combos, true
		}
	}
	return nil, false
}

func parseLanguageHotkey(value string) ([]keys.Combination, bool) {
	switch strings.TrimSpace(value) {
	case "1":
		return []keys.Combination{keys.FromKeys(keys.Menu, keys.Shift)}, true
	case "2":
		return []keys.Combination{keys.FromKeys(keys.Control, keys.Shift)}, true
	case "3":
		return nil, true
	case "4":
		return []keys.Combination{keys.NewCombination(keys.Oem3)}, true
	}
	return nil, false
}

func parseWinKeyCombo(value string) ([]keys.Combination, bool) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if len(value) != 1 || value[0] < 'A' || value[0] > 'Z' {
		return nil, false
	}
	return []keys.Combination{keys.FromKeys(keys.LWin, keys.Letter(value[0]))}, true
}

// parseTaskManagerHotkey never recognises a value; the policy key has no
// documented hotkey format.
func parseTaskManagerHotkey(string) ([]keys.Combination, bool) {
	return nil, false
}
