//go:build windows

package commands

import (
	"fmt"
	"os"
)

// isProcessRunning only checks that the PID file names a process; Windows
// has no signal 0.
func isProcessRunning(pidPath string) (int, bool) {
	pid, err := readPidFile(pidPath)
	if err != nil {
		return 0, false
	}
	if _, err := os.FindProcess(pid); err != nil {
		return 0, false
	}
	return pid, true
}

// startDaemon is not supported on Windows.
func startDaemon() error {
	return fmt.Errorf("daemon mode is not supported on Windows, use --foreground")
}
