//go:build windows

package procutil

import (
	"os/exec"
	"syscall"
)

// Detach puts cmd in a new process group so console control events sent to
// this process do not reach it. Existing SysProcAttr fields are preserved.
func Detach(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}
