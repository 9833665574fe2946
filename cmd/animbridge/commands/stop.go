package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errProcessDone = errors.New("process already finished")

var (
	stopPidFile string
	stopForce   bool
	stopWait    time.Duration
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the animbridge daemon",
	Long: `Stop a running animbridge daemon.

By default, sends SIGTERM for graceful shutdown: in-flight commands finish,
queued commands are answered with an error and the listener closes. Use
--force for immediate termination.

Examples:
  # Stop daemon (uses default PID file)
  animbridge stop

  # Stop daemon using custom PID file
  animbridge stop --pid-file /var/run/animbridge.pid

  # Force stop
  animbridge stop --force`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/animbridge/animbridge.pid)")
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Force kill instead of graceful shutdown")
	stopCmd.Flags().DurationVar(&stopWait, "wait", 10*time.Second, "How long to wait for the daemon to exit (0 to not wait)")
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := stopPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	pid, err := readPidFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PID file not found: %s\n\nIs the daemon running?", pidPath)
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := stopProcess(process, pid, stopForce); err != nil {
		if errors.Is(err, errProcessDone) {
			fmt.Println("Daemon already stopped")
			_ = os.Remove(pidPath)
			return nil
		}
		return err
	}

	if stopForce {
		_ = os.Remove(pidPath)
		fmt.Println("Daemon terminated")
		return nil
	}

	if stopWait <= 0 {
		fmt.Println("Shutdown signal sent. Daemon will stop gracefully.")
		return nil
	}

	// The daemon removes its own PID file on a clean exit.
	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if _, running := isProcessRunning(pidPath); !running {
			fmt.Println("Daemon stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon (PID %d) did not stop within %s, use --force to kill it", pid, stopWait)
}

// readPidFile parses the PID stored at path.
func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file %s: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}
