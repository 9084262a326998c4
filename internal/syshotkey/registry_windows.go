//go:build windows

package syshotkey

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sys/windows/registry"
)

type registryReader struct{}

func (registryReader) ReadString(subkey, name string) (string, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, subkey, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("open registry key %s: %w", subkey, err)
	}
	defer key.Close()

	value, _, err := key.GetStringValue(name)
	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, registry.ErrNotExist):
		return "", ErrNotFound
	case errors.Is(err, registry.ErrUnexpectedType):
		n, _, intErr := key.GetIntegerValue(name)
		if intErr != nil {
			return "", fmt.Errorf("read registry value %s\\%s: %w", subkey, name, intErr)
		}
		return strconv.FormatUint(n, 10), nil
	}
	return "", fmt.Errorf("read registry value %s\\%s: %w", subkey, name, err)
}
