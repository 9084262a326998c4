//go:build !windows

package hook

// Hook is a no-op on platforms without low-level keyboard hooks.
type Hook struct{}

// New returns an idle hook.
func New() *Hook {
	return &Hook{}
}

// Start always fails with ErrUnsupported.
func (h *Hook) Start(*Dispatcher) error {
	return ErrUnsupported
}

// Stop does nothing.
func (h *Hook) Stop() error {
	return nil
}
