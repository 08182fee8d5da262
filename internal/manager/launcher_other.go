//go:build !unix && !windows

package manager

import "os/exec"

func configureDetached(*exec.Cmd) {}
