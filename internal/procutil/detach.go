package procutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// StartDetached starts cmd without waiting for it and releases its process
// handle.
func StartDetached(cmd *exec.Cmd) error {
	if cmd == nil {
		return errors.New("command is nil")
	}
	Detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		slog.Debug("[DEBUG-PROC] release of detached process failed", "pid", pid, "error", err)
	}
	return nil
}
