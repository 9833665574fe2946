//go:build e2e

package helpers

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/marmos91/animbridge/pkg/apiclient"
	"github.com/marmos91/animbridge/pkg/transport"
)

// DaemonProcess manages an animbridge daemon subprocess for E2E testing.
type DaemonProcess struct {
	cmd           *exec.Cmd
	pidFile       string
	socketPort    int
	apiPort       int
	logFile       string
	stateDir      string
	mailboxDir    string
	configFile    string
	process       *os.Process
	logFileHandle *os.File
}

// FindFreePort finds an available TCP port by binding to :0 and reading the assigned port.
func FindFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// StartDaemonProcess starts animbridge in foreground mode with a generated
// config and waits until /health/ready answers.
func StartDaemonProcess(t *testing.T) *DaemonProcess {
	t.Helper()

	stateDir := t.TempDir()
	dp := &DaemonProcess{
		pidFile:    filepath.Join(stateDir, "animbridge.pid"),
		logFile:    filepath.Join(stateDir, "animbridge.log"),
		stateDir:   stateDir,
		mailboxDir: filepath.Join(stateDir, "mailbox"),
		socketPort: FindFreePort(t),
		apiPort:    FindFreePort(t),
	}
	dp.configFile = writeConfig(t, dp)

	cmd := exec.Command(findBinary(t, "animbridge"), "start", "--foreground",
		"--config", dp.configFile,
		"--pid-file", dp.pidFile,
		"--log-file", dp.logFile)

	logFileHandle, err := os.OpenFile(dp.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		t.Fatalf("Failed to start animbridge: %v", err)
	}
	dp.cmd = cmd
	dp.process = cmd.Process
	dp.logFileHandle = logFileHandle

	if err := dp.WaitReady(10 * time.Second); err != nil {
		dp.DumpLogs(t)
		dp.ForceKill()
		t.Fatalf("Daemon failed to become ready: %v", err)
	}
	return dp
}

// WaitReady polls /health/ready until the command port is bound.
func (dp *DaemonProcess) WaitReady(timeout time.Duration) error {
	client := dp.APIClient().WithTimeout(500 * time.Millisecond)
	deadline := time.Now().Add(timeout)

	var lastErr error
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := client.Ready(ctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon not ready after %v: %w", timeout, lastErr)
}

// Dial opens a command connection to the daemon.
func (dp *DaemonProcess) Dial(t *testing.T) *transport.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := transport.DialHostPort(ctx, "127.0.0.1", dp.socketPort, 5*time.Second)
	if err != nil {
		t.Fatalf("Failed to dial daemon: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// APIClient returns a client for the daemon's HTTP API.
func (dp *DaemonProcess) APIClient() *apiclient.Client {
	return apiclient.New(dp.APIURL())
}

// SendSignal sends a signal to the daemon process.
func (dp *DaemonProcess) SendSignal(sig syscall.Signal) error {
	if dp.process == nil {
		return fmt.Errorf("no process to signal")
	}
	return dp.process.Signal(sig)
}

// WaitForExit waits for the process to exit within the timeout.
func (dp *DaemonProcess) WaitForExit(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- dp.cmd.Wait()
	}()

	select {
	case err := <-done:
		dp.closeLog()
		return err
	case <-time.After(timeout):
		return fmt.Errorf("process did not exit within %v", timeout)
	}
}

// StopGracefully sends SIGTERM and waits for a clean exit.
func (dp *DaemonProcess) StopGracefully() error {
	if err := dp.SendSignal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}
	return dp.WaitForExit(10 * time.Second)
}

// ForceKill terminates the daemon, trying SIGTERM before SIGKILL.
func (dp *DaemonProcess) ForceKill() {
	if dp.process == nil || dp.cmd.ProcessState != nil {
		dp.closeLog()
		return
	}

	_ = dp.process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_, _ = dp.process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = dp.process.Kill()
		<-done
	}
	dp.closeLog()
}

func (dp *DaemonProcess) closeLog() {
	if dp.logFileHandle != nil {
		_ = dp.logFileHandle.Close()
		dp.logFileHandle = nil
	}
}

// ProcessRunning reports whether the daemon process still exists.
func (dp *DaemonProcess) ProcessRunning() bool {
	if dp.process == nil {
		return false
	}
	return dp.process.Signal(syscall.Signal(0)) == nil
}

// SocketPort returns the command port.
func (dp *DaemonProcess) SocketPort() int { return dp.socketPort }

// APIPort returns the HTTP API port.
func (dp *DaemonProcess) APIPort() int { return dp.apiPort }

// APIURL returns the full API URL.
func (dp *DaemonProcess) APIURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", dp.apiPort)
}

// MailboxDir returns the mailbox directory the daemon polls.
func (dp *DaemonProcess) MailboxDir() string { return dp.mailboxDir }

// PidFile returns the path to the PID file.
func (dp *DaemonProcess) PidFile() string { return dp.pidFile }

// ConfigFile returns the path to the generated config.
func (dp *DaemonProcess) ConfigFile() string { return dp.configFile }

// DumpLogs prints the daemon log to help debug failures.
func (dp *DaemonProcess) DumpLogs(t *testing.T) {
	t.Helper()

	content, err := os.ReadFile(dp.logFile)
	if err != nil {
		t.Logf("Could not read log file: %v", err)
		return
	}
	t.Logf("Daemon logs:\n%s", string(content))
}

func writeConfig(t *testing.T, dp *DaemonProcess) string {
	t.Helper()

	content := fmt.Sprintf(`# Test configuration generated by e2e test
logging:
  level: DEBUG
  format: text
  output: stdout

api:
  host: 127.0.0.1
  port: %d

socket:
  host: 127.0.0.1
  port: %d
  max_port_attempts: 1

mailbox:
  enabled: true
  dir: %q
  layout: directory
  order: fifo
  max_per_poll: 4
  poll_interval: 100ms

host:
  tick_interval: 10ms

catalog:
  backend: memory
`, dp.apiPort, dp.socketPort, dp.mailboxDir)

	path := filepath.Join(dp.stateDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}
