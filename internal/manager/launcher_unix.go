//go:build unix

package manager

import (
	"os/exec"
	"syscall"
)

// configureDetached puts the runtime in its own process group so signals
// sent to the daemon do not reach it. Output is discarded.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = nil
	cmd.Stderr = nil
}
