//go:build !windows

package procutil

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given PID exists and is
// signalable by the current user.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
