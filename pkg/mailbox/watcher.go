package mailbox

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/animbridge/internal/logger"
)

// Watch marks the client dirty whenever a request file appears in the
// mailbox, so the host polls on its next tick instead of waiting for the
// poll interval. It touches no host state and returns when ctx is done.
func (c *Client) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create mailbox watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(c.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch mailbox dir: %w", err)
	}
	logger.Debug("Watching mailbox", logger.KeyDir, c.cfg.Dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if c.relevant(event) {
				c.MarkDirty()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Missed events only delay the next poll to the interval.
			logger.Warn("Mailbox watcher error", logger.KeyError, err)
		}
	}
}

func (c *Client) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if c.cfg.Layout == LayoutLegacy {
		return name == LegacyFileName
	}
	ok, _ := filepath.Match(FilePattern, name)
	return ok
}
