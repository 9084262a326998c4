//go:build !windows

package procutil

import (
	"os/exec"
	"syscall"
)

// Detach starts cmd in its own process group.
func Detach(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
