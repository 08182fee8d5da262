//go:build windows

package manager

import (
	"os/exec"
	"syscall"
)

const createNewConsole = 0x00000010

// configureDetached gives the runtime its own console window.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewConsole}
}
