//go:build !windows

package singleinstance

import "errors"

// Lock is a no-op on non-Windows platforms.
type Lock struct{}

// TryLock only validates the name on non-Windows platforms.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("mutex name is required")
	}
	return &Lock{}, nil
}

// Release is a no-op on non-Windows platforms.
func (l *Lock) Release() error { return nil }
