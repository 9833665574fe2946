//go:build e2e

package helpers

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var buildMu sync.Mutex

// RunDaemonCLI executes the animbridge binary and returns its stdout.
func RunDaemonCLI(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	return run(findBinary(t, "animbridge"), args...)
}

// RunCtl executes animbridgectl against the daemon's ports with --output json.
func RunCtl(t *testing.T, dp *DaemonProcess, args ...string) ([]byte, error) {
	t.Helper()

	full := []string{
		"--output", "json",
		"--port", fmt.Sprint(dp.SocketPort()),
		"--api-url", dp.APIURL(),
	}
	return run(findBinary(t, "animbridgectl"), append(full, args...)...)
}

func run(binary string, args ...string) ([]byte, error) {
	cmd := exec.Command(binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s %v: %w\nstderr: %s", filepath.Base(binary), args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// findBinary locates name in PATH or the project root, building it from
// ./cmd/<name> when missing.
func findBinary(t *testing.T, name string) string {
	t.Helper()

	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	buildMu.Lock()
	defer buildMu.Unlock()

	projectRoot := findProjectRoot(t)
	localBinary := filepath.Join(projectRoot, name)
	if _, err := os.Stat(localBinary); err == nil {
		return localBinary
	}

	t.Logf("Building %s binary...", name)
	cmd := exec.Command("go", "build", "-o", localBinary, "./cmd/"+name+"/")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build %s: %v\n%s", name, err, output)
	}
	return localBinary
}

// findProjectRoot locates the project root by looking for go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("Could not find project root (go.mod not found)")
		}
		dir = parent
	}
}
