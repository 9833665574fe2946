//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"testing"
)

// TestMain removes binaries built by the helpers once all tests are done.
func TestMain(m *testing.M) {
	code := m.Run()

	if os.Getenv("ANIMBRIDGE_E2E_KEEP_BINARIES") == "" {
		for _, name := range []string{"animbridge", "animbridgectl"} {
			_ = os.Remove(filepath.Join("..", "..", name))
		}
	}
	os.Exit(code)
}
