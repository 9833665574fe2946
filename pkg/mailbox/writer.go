package mailbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/animbridge/internal/atomicfile"
	"github.com/marmos91/animbridge/internal/logger"
)

// Writer is the producer side of the mailbox.
type Writer struct {
	cfg Config
}

// NewWriter creates a producer for cfg.
func NewWriter(cfg Config) (*Writer, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Writer{cfg: cfg}, nil
}

// Dir returns the mailbox root.
func (w *Writer) Dir() string { return w.cfg.Dir }

// Enqueue writes req atomically and returns the path it was written to.
// With the legacy layout any unconsumed request is replaced.
func (w *Writer) Enqueue(req Request) (string, error) {
	req.applyDefaults()
	if req.Timestamp == "" {
		req.Timestamp = time.Now().Format(TimestampLayout)
	}

	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode mailbox request: %w", err)
	}

	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create mailbox dir: %w", err)
	}

	path := filepath.Join(w.cfg.Dir, w.fileName())
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write mailbox request: %w", err)
	}

	logger.Debug("Mailbox request written",
		logger.KeyFile, filepath.Base(path),
		logger.KeyLayout, string(w.cfg.Layout),
		logger.KeyTarget, req.TargetID)
	return path, nil
}

func (w *Writer) fileName() string {
	if w.cfg.Layout == LayoutLegacy {
		return LegacyFileName
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return FilePrefix + "_" + suffix + ".json"
}
