// Package daemon tracks a running review server through a PID file.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrAlreadyRunning is returned by Acquire when a live process holds the file.
var ErrAlreadyRunning = errors.New("server already running")

// ErrNotRunning is returned when no live process holds the file.
var ErrNotRunning = errors.New("server not running")

// PIDFile records the PID of the serving process.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Acquire writes the current PID. A file left by a dead process is replaced.
func (p *PIDFile) Acquire() error {
	if pid, ok := p.IsRunning(); ok {
		return fmt.Errorf("%w (pid %d, %s)", ErrAlreadyRunning, pid, p.Path)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	return p.WritePID(os.Getpid())
}

// Release removes the file if it still names the current process.
func (p *PIDFile) Release() error {
	pid, err := p.Read()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil || pid != os.Getpid() {
		return err
	}
	return os.Remove(p.Path)
}

// WritePID writes the given PID to the file.
func (p *PIDFile) WritePID(pid int) error {
	return os.WriteFile(p.Path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Read reads the PID from the file.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file content %q", strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// IsRunning reports the recorded PID and whether that process is alive.
func (p *PIDFile) IsRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	return pid, alive(pid)
}
