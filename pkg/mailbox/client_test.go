package mailbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	mu       sync.Mutex
	commands []protocol.Command
	fail     bool
}

func (e *recordingExecutor) Execute(_ context.Context, cmd protocol.Command) protocol.Response {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, cmd)
	if e.fail {
		return protocol.Errorf("Animation not found")
	}
	return protocol.Success("Applied", nil)
}

// targets returns the ids of executed commands in execution order.
func (e *recordingExecutor) targets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.commands))
	for _, c := range e.commands {
		id, _ := c.Payload["animation_id"].(string)
		if id == "" {
			id, _ = c.Payload["pose_id"].(string)
		}
		out = append(out, id)
	}
	return out
}

func newTestMailbox(t *testing.T, cfg Config) (*Writer, *Client, *recordingExecutor) {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(t.TempDir(), DefaultDirName)
	}
	w, err := NewWriter(cfg)
	require.NoError(t, err)

	exec := &recordingExecutor{}
	c, err := NewClient(cfg, exec)
	require.NoError(t, err)
	return w, c, exec
}

func enqueueAt(t *testing.T, w *Writer, id string, mtime time.Time) string {
	t.Helper()
	path, err := w.Enqueue(NewAnimationRequest(id, "anim "+id, protocol.DefaultApplyOptions()))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func remaining(t *testing.T, c *Client) int {
	t.Helper()
	pending, err := c.List()
	require.NoError(t, err)
	return len(pending)
}

func TestLegacyMailboxLastWriteWins(t *testing.T) {
	w, c, exec := newTestMailbox(t, Config{Layout: LayoutLegacy})

	first, err := w.Enqueue(NewAnimationRequest("r1", "First", protocol.DefaultApplyOptions()))
	require.NoError(t, err)
	second, err := w.Enqueue(NewAnimationRequest("r2", "Second", protocol.DefaultApplyOptions()))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, LegacyFileName, filepath.Base(second))

	// Only the second request is visible; the first is gone for good.
	pending, err := c.List()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	results := c.Poll(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "r2", results[0].Request.TargetID)
	assert.Equal(t, metrics.OutcomeSuccess, results[0].Outcome)

	assert.Empty(t, c.Poll(context.Background()))
	assert.Equal(t, []string{"r2"}, exec.targets())
	assert.Zero(t, remaining(t, c))
}

func TestDirectoryMailboxOrder(t *testing.T) {
	base := time.Now().Add(-time.Minute)

	tests := []struct {
		name   string
		order  OrderPolicy
		expect []string
	}{
		{name: "LIFO", order: OrderLIFO, expect: []string{"file3", "file2", "file1"}},
		{name: "FIFO", order: OrderFIFO, expect: []string{"file1", "file2", "file3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c, exec := newTestMailbox(t, Config{Order: tt.order})

			// Written out of order; only modification time decides.
			enqueueAt(t, w, "file2", base.Add(2*time.Second))
			enqueueAt(t, w, "file3", base.Add(3*time.Second))
			enqueueAt(t, w, "file1", base.Add(1*time.Second))

			for i := 0; i < 3; i++ {
				results := c.Poll(context.Background())
				require.Len(t, results, 1, "poll %d", i)
			}
			assert.Empty(t, c.Poll(context.Background()))
			assert.Equal(t, tt.expect, exec.targets())
			assert.Zero(t, remaining(t, c))
		})
	}
}

func TestDirectoryMailboxFileNames(t *testing.T) {
	w, _, _ := newTestMailbox(t, Config{})

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		path, err := w.Enqueue(NewPoseRequest(fmt.Sprintf("p%d", i), "", false))
		require.NoError(t, err)
		name := filepath.Base(path)
		assert.Regexp(t, `^apply_[0-9a-f]{8}\.json$`, name)
		assert.False(t, seen[name])
		seen[name] = true
	}

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 5, "no staging files left behind")
}

func TestPollMaxPerPoll(t *testing.T) {
	w, c, exec := newTestMailbox(t, Config{Order: OrderFIFO, MaxPerPoll: 2})
	base := time.Now().Add(-time.Minute)
	for i := 1; i <= 3; i++ {
		enqueueAt(t, w, fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Second))
	}

	assert.Len(t, c.Poll(context.Background()), 2)
	assert.True(t, c.Due(), "leftover work keeps the mailbox dirty")
	assert.Len(t, c.Poll(context.Background()), 1)
	assert.Equal(t, []string{"r1", "r2", "r3"}, exec.targets())
}

func TestPollAlwaysDeletes(t *testing.T) {
	t.Run("CorruptFile", func(t *testing.T) {
		_, c, exec := newTestMailbox(t, Config{})
		path := filepath.Join(c.Config().Dir, "apply_deadbeef.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"status": "pend`), 0o644))

		results := c.Poll(context.Background())
		require.Len(t, results, 1)
		assert.Equal(t, metrics.OutcomeCorrupt, results[0].Outcome)
		assert.ErrorIs(t, results[0].Err, ErrCorruptRequest)
		assert.NoFileExists(t, path)
		assert.Empty(t, exec.targets())
	})

	t.Run("FailedCommand", func(t *testing.T) {
		w, c, exec := newTestMailbox(t, Config{})
		exec.fail = true
		path, err := w.Enqueue(NewAnimationRequest("missing", "", protocol.DefaultApplyOptions()))
		require.NoError(t, err)

		results := c.Poll(context.Background())
		require.Len(t, results, 1)
		assert.Equal(t, metrics.OutcomeError, results[0].Outcome)
		assert.Equal(t, "Animation not found", results[0].Response.Message)
		assert.NoFileExists(t, path)
	})

	t.Run("NotPending", func(t *testing.T) {
		w, c, exec := newTestMailbox(t, Config{})
		req := NewAnimationRequest("a1", "", protocol.DefaultApplyOptions())
		req.Status = StatusCancelled
		path, err := w.Enqueue(req)
		require.NoError(t, err)

		results := c.Poll(context.Background())
		require.Len(t, results, 1)
		assert.Equal(t, metrics.OutcomeSkipped, results[0].Outcome)
		assert.NoFileExists(t, path)
		assert.Empty(t, exec.targets())
	})

	t.Run("Expired", func(t *testing.T) {
		w, c, exec := newTestMailbox(t, Config{MaxAge: time.Minute})
		path := enqueueAt(t, w, "old", time.Now().Add(-time.Hour))

		results := c.Poll(context.Background())
		require.Len(t, results, 1)
		assert.Equal(t, metrics.OutcomeExpired, results[0].Outcome)
		assert.NoFileExists(t, path)
		assert.Empty(t, exec.targets())
	})
}

func TestDirectoryConsumerReadsLegacyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DefaultDirName)
	legacy, err := NewWriter(Config{Dir: dir, Layout: LayoutLegacy})
	require.NoError(t, err)
	_, err = legacy.Enqueue(NewPoseRequest("p1", "Idle", false))
	require.NoError(t, err)

	exec := &recordingExecutor{}
	c, err := NewClient(Config{Dir: dir}, exec)
	require.NoError(t, err)

	results := c.Poll(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, protocol.TypeApplyPose, results[0].Command)
	assert.Equal(t, []string{"p1"}, exec.targets())
}

func TestListIgnoresStagingFiles(t *testing.T) {
	_, c, _ := newTestMailbox(t, Config{})
	dir := c.Config().Dir
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apply_12345678.json.tmp"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "apply_dir.json"), 0o755))

	assert.Zero(t, remaining(t, c))
	assert.Empty(t, c.Poll(context.Background()))
}

func TestClear(t *testing.T) {
	w, c, _ := newTestMailbox(t, Config{})
	for i := 0; i < 3; i++ {
		_, err := w.Enqueue(NewPoseRequest(fmt.Sprintf("p%d", i), "", false))
		require.NoError(t, err)
	}

	n, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, remaining(t, c))
}

func TestDue(t *testing.T) {
	now := time.Now()
	exec := &recordingExecutor{}
	c, err := NewClient(Config{Dir: t.TempDir(), PollInterval: 2 * time.Second}, exec,
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	assert.True(t, c.Due(), "first tick polls")
	c.Poll(context.Background())
	assert.False(t, c.Due())

	now = now.Add(time.Second)
	assert.False(t, c.Due())
	c.MarkDirty()
	assert.True(t, c.Due())

	c.Poll(context.Background())
	now = now.Add(2 * time.Second)
	assert.True(t, c.Due())
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewClient(Config{Dir: t.TempDir(), Layout: "spool"}, &recordingExecutor{})
	assert.Error(t, err)

	_, err = NewWriter(Config{Dir: t.TempDir(), Order: "random"})
	assert.Error(t, err)
}
