//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

func alive(pid int) bool {
	// Signal 0 checks the process without delivering anything.
	return syscall.Kill(pid, 0) == nil
}

// Signal sends sig to the recorded process.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	pid, running := p.IsRunning()
	if !running {
		return fmt.Errorf("%w (%s)", ErrNotRunning, p.Path)
	}
	return syscall.Kill(pid, sig)
}
