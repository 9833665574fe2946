package mailbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchMarksDirty(t *testing.T) {
	w, c, _ := newTestMailbox(t, Config{PollInterval: time.Hour})
	c.Poll(context.Background())
	require.False(t, c.Due())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Watch(ctx))
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	// The watcher registers asynchronously; keep producing until it notices.
	assert.Eventually(t, func() bool {
		_, err := w.Enqueue(NewAnimationRequest("a1", "", protocol.DefaultApplyOptions()))
		return err == nil && c.Due()
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWatcherRelevance(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		event  fsnotify.Event
		expect bool
	}{
		{"RequestCreated", LayoutDirectory, fsnotify.Event{Name: "/q/apply_0a1b2c3d.json", Op: fsnotify.Create}, true},
		{"RenamedIntoPlace", LayoutDirectory, fsnotify.Event{Name: "/q/apply_0a1b2c3d.json", Op: fsnotify.Rename}, true},
		{"StagingFile", LayoutDirectory, fsnotify.Event{Name: "/q/apply_0a1b2c3d.json.tmp", Op: fsnotify.Create}, false},
		{"Removed", LayoutDirectory, fsnotify.Event{Name: "/q/apply_0a1b2c3d.json", Op: fsnotify.Remove}, false},
		{"LegacyFile", LayoutLegacy, fsnotify.Event{Name: "/q/apply_animation.json", Op: fsnotify.Write}, true},
		{"LegacyIgnoresOthers", LayoutLegacy, fsnotify.Event{Name: "/q/apply_0a1b2c3d.json", Op: fsnotify.Create}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{cfg: Config{Layout: tt.layout}}
			assert.Equal(t, tt.expect, c.relevant(tt.event))
		})
	}
}
