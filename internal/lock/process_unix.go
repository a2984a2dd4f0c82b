//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

// processExists checks if a process with the given PID is running.
// FindProcess always succeeds on Unix, so signal 0 probes for liveness.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM: the process exists but belongs to someone else
	if errors.Is(err, syscall.EPERM) {
		return true
	}
	// ESRCH: no such process
	return false
}
