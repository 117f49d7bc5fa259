//go:build windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals returns the OS signals to listen for graceful shutdown.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// sigTERM returns the termination signal for Windows. Only a kill is
// delivered reliably, so stop is always forceful there.
func sigTERM() syscall.Signal { return syscall.SIGKILL }

// sigKILL returns the kill signal for Windows (os.Kill).
func sigKILL() syscall.Signal { return syscall.SIGKILL }
