package hook

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by Start on platforms without low-level
// keyboard hooks.
var ErrUnsupported = errors.New("low-level keyboard hooks are only supported on Windows")

// ErrAlreadyInstalled is returned when a second hook is started in the same
// process. The OS callback has no user pointer, so one dispatcher is served
// at a time.
var ErrAlreadyInstalled = errors.New("keyboard hook is already installed")

// Run installs the hook for d, blocks until ctx is cancelled and then
// removes it.
func Run(ctx context.Context, d *Dispatcher) error {
	h := New()
	if err := h.Start(d); err != nil {
		return err
	}
	<-ctx.Done()
	return h.Stop()
}
