package manager

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// Launcher starts the runtime process. Launch must return once the process
// has been spawned; it does not wait for the runtime to become reachable.
type Launcher interface {
	Launch(ctx context.Context) error
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) error

func (f LauncherFunc) Launch(ctx context.Context) error { return f(ctx) }

// ExecLauncher runs `<binary> serve` as a detached child process.
type ExecLauncher struct {
	Binary string
	Host   string
}

// NewExecLauncher returns a launcher for binary serving on host.
func NewExecLauncher(binary, host string) *ExecLauncher {
	return &ExecLauncher{Binary: binary, Host: host}
}

func (l *ExecLauncher) Launch(_ context.Context) error {
	bin, err := exec.LookPath(l.Binary)
	if err != nil {
		return ErrUnavailable("launch: " + err.Error())
	}
	// The runtime outlives the request that started it, so the command is not
	// bound to ctx.
	cmd := exec.Command(bin, "serve")
	cmd.Env = os.Environ()
	if h := hostPort(l.Host); h != "" {
		cmd.Env = append(cmd.Env, "OLLAMA_HOST="+h)
	}
	configureDetached(cmd)
	if err := cmd.Start(); err != nil {
		return ErrUnavailable("launch: " + err.Error())
	}
	// Reap the child when it exits.
	go func() { _ = cmd.Wait() }()
	return nil
}

// hostPort strips the scheme from a base URL.
func hostPort(base string) string {
	s := strings.TrimSpace(base)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	return strings.TrimRight(s, "/")
}
