//go:build !windows

package sysaction

import (
	"fmt"

	"keyswitch/internal/action"
	"keyswitch/internal/keys"
)

func (e *Executor) SynthesizeKey(vk keys.VKey) error {
	return fmt.Errorf("press %s: %w", vk, action.ErrUnsupported)
}

func (e *Executor) PostToForeground(msg uint32, _, _ uintptr) error {
	return fmt.Errorf("post message 0x%X: %w", msg, action.ErrUnsupported)
}

func (e *Executor) InvokeSystemFunction(fn action.SystemFunction) error {
	return fmt.Errorf("%s: %w", fn, action.ErrUnsupported)
}
