package mailbox

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File naming shared with producers.
const (
	DefaultDirName = "animation_library_queue"
	LegacyFileName = "apply_animation.json"
	FilePrefix     = "apply"
	FilePattern    = FilePrefix + "_*.json"
)

// Defaults.
const (
	DefaultMaxPerPoll   = 1
	DefaultPollInterval = 2 * time.Second
)

// Layout selects how requests are stored on disk.
type Layout string

const (
	// LayoutDirectory stores one file per request.
	LayoutDirectory Layout = "directory"

	// LayoutLegacy stores a single fixed file, overwritten by every request.
	LayoutLegacy Layout = "legacy"
)

// OrderPolicy selects which pending files are consumed first.
type OrderPolicy string

const (
	// OrderLIFO consumes the newest file first. Under sustained load older
	// requests can starve; MaxAge bounds how long they may wait.
	OrderLIFO OrderPolicy = "lifo"

	// OrderFIFO consumes the oldest file first.
	OrderFIFO OrderPolicy = "fifo"
)

// Config configures both the producer and the consumer side.
type Config struct {
	// Dir is the mailbox root. Defaults to <tmp>/animation_library_queue.
	Dir string

	Layout Layout
	Order  OrderPolicy

	// MaxPerPoll bounds how many files one Poll consumes.
	MaxPerPoll int

	// MaxAge, when positive, deletes requests older than this without
	// executing them.
	MaxAge time.Duration

	// PollInterval is the idle interval between polls. A watcher event makes
	// the next tick poll immediately.
	PollInterval time.Duration
}

// DefaultDir returns the platform default mailbox root.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), DefaultDirName)
}

func (c *Config) applyDefaults() {
	if c.Dir == "" {
		c.Dir = DefaultDir()
	}
	if c.Layout == "" {
		c.Layout = LayoutDirectory
	}
	if c.Order == "" {
		c.Order = OrderLIFO
	}
	if c.MaxPerPoll <= 0 {
		c.MaxPerPoll = DefaultMaxPerPoll
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

func (c *Config) validate() error {
	switch c.Layout {
	case LayoutDirectory, LayoutLegacy:
	default:
		return fmt.Errorf("unknown mailbox layout %q", c.Layout)
	}
	switch c.Order {
	case OrderLIFO, OrderFIFO:
	default:
		return fmt.Errorf("unknown mailbox order %q", c.Order)
	}
	return nil
}
