//go:build windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
)

func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Signal sends sig to the recorded process. Only os.Kill is reliable on Windows.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	pid, running := p.IsRunning()
	if !running {
		return fmt.Errorf("%w (%s)", ErrNotRunning, p.Path)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	return proc.Signal(sig)
}
