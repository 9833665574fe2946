// Package atomicfile writes files so that readers never observe partial
// content: data goes to a temporary sibling which is then renamed over the
// destination.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempSuffix is appended to the destination name for the staging file.
const TempSuffix = ".tmp"

// Write atomically replaces path with data. The staging file lives in the
// same directory so the final rename never crosses filesystems.
func Write(path string, data []byte, perm os.FileMode) error {
	tmp := path + TempSuffix

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(tmp), err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", filepath.Base(tmp), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", filepath.Base(tmp), err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into %s: %w", filepath.Base(path), err)
	}
	return nil
}
