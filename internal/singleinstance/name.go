// Package singleinstance keeps a second keyswitch process from installing
// another keyboard hook for the same user.
package singleinstance

import (
	"errors"

	"keyswitch/internal/userutil"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the mutex.
var ErrAlreadyRunning = errors.New("another instance is already running")

const mutexPrefix = `Global\keyswitch-`

// DefaultMutexName returns the per-user mutex name. It mirrors
// ipc.DefaultPipeName so both objects are scoped to the same user.
func DefaultMutexName() string {
	return userutil.ScopedName(mutexPrefix)
}
