package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/marmos91/animbridge/pkg/protocol"
)

// Executor runs one command on the host thread. dispatch.Scheduler
// satisfies it.
type Executor interface {
	Execute(ctx context.Context, cmd protocol.Command) protocol.Response
}

// PendingRequest is a request file awaiting consumption.
type PendingRequest struct {
	Path    string    `json:"path" yaml:"path"`
	Name    string    `json:"name" yaml:"name"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	Size    int64     `json:"size" yaml:"size"`
}

// PollResult describes what happened to one consumed file.
type PollResult struct {
	File     string
	Request  Request
	Command  string
	Response protocol.Response
	Outcome  string
	Err      error
}

// Client is the consumer side of the mailbox. Poll must only be called from
// the host tick; MarkDirty and Due may be called from any goroutine.
type Client struct {
	cfg     Config
	exec    Executor
	metrics metrics.MailboxMetrics
	now     func() time.Time

	dirty    atomic.Bool
	lastPoll atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetrics attaches mailbox metrics. nil disables collection.
func WithMetrics(m metrics.MailboxMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient creates a consumer executing requests through exec. The mailbox
// directory is created when missing.
func NewClient(cfg Config, exec Executor, opts ...ClientOption) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mailbox dir: %w", err)
	}

	c := &Client{cfg: cfg, exec: exec, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	// The first tick always polls.
	c.dirty.Store(true)

	logger.Info("Mailbox ready",
		logger.KeyDir, cfg.Dir,
		logger.KeyLayout, string(cfg.Layout),
		logger.KeyOrder, string(cfg.Order))
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// MarkDirty makes the next Due call return true.
func (c *Client) MarkDirty() { c.dirty.Store(true) }

// Due reports whether a poll should run now: the mailbox changed or the
// poll interval elapsed.
func (c *Client) Due() bool {
	if c.dirty.Load() {
		return true
	}
	last := time.Unix(0, c.lastPoll.Load())
	return c.now().Sub(last) >= c.cfg.PollInterval
}

// Poll consumes up to MaxPerPoll pending files in the configured order.
// Every file it picks is deleted, whether it executed, failed or could not be
// parsed.
func (c *Client) Poll(ctx context.Context) []PollResult {
	c.dirty.Store(false)
	c.lastPoll.Store(c.now().UnixNano())

	pending, err := c.List()
	if err != nil {
		logger.Error("Failed to list mailbox", logger.KeyDir, c.cfg.Dir, logger.KeyError, err)
		return nil
	}
	if c.metrics != nil {
		c.metrics.SetPending(len(pending))
	}
	if len(pending) == 0 {
		return nil
	}
	logger.Debug("Mailbox requests pending", logger.KeyCount, len(pending))

	n := min(len(pending), c.cfg.MaxPerPoll)
	results := make([]PollResult, 0, n)
	for _, p := range pending[:n] {
		if ctx.Err() != nil {
			break
		}
		r := c.consume(ctx, p)
		if c.metrics != nil {
			c.metrics.RequestProcessed(string(c.cfg.Layout), r.Outcome)
		}
		results = append(results, r)
	}

	// More work remains; do not wait for the poll interval.
	if len(pending) > n {
		c.dirty.Store(true)
	}
	return results
}

func (c *Client) consume(ctx context.Context, p PendingRequest) PollResult {
	res := PollResult{File: p.Name}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		// Another consumer got it first.
		if errors.Is(err, fs.ErrNotExist) {
			res.Outcome = metrics.OutcomeSkipped
			return res
		}
		res.Outcome, res.Err = metrics.OutcomeError, err
		logger.Error("Failed to read mailbox request", logger.KeyFile, p.Name, logger.KeyError, err)
		c.remove(p)
		return res
	}

	req, err := ParseRequest(data)
	if err != nil {
		res.Outcome, res.Err = metrics.OutcomeCorrupt, err
		logger.Warn("Discarding corrupt mailbox request", logger.KeyFile, p.Name, logger.KeyError, err)
		c.remove(p)
		return res
	}
	res.Request = req

	if age := c.now().Sub(p.ModTime); c.cfg.MaxAge > 0 && age > c.cfg.MaxAge {
		res.Outcome = metrics.OutcomeExpired
		logger.Warn("Discarding expired mailbox request",
			logger.KeyFile, p.Name, logger.KeyAge, age.Round(time.Millisecond).String(), logger.KeyTarget, req.TargetID)
		c.remove(p)
		return res
	}

	if !req.Pending() {
		res.Outcome = metrics.OutcomeSkipped
		logger.Debug("Discarding non-pending mailbox request",
			logger.KeyFile, p.Name, logger.KeyStatus, req.Status)
		c.remove(p)
		return res
	}

	cmd := req.ToCommand()
	cmd.ClientID = "mailbox:" + p.Name
	res.Command = cmd.Type
	res.Response = c.exec.Execute(ctx, cmd)
	if res.Response.OK() {
		res.Outcome = metrics.OutcomeSuccess
		logger.Info("Mailbox request completed",
			logger.KeyFile, p.Name, logger.KeyCommandType, cmd.Type, logger.KeyMessage, res.Response.Message)
	} else {
		res.Outcome = metrics.OutcomeError
		logger.Warn("Mailbox request failed",
			logger.KeyFile, p.Name, logger.KeyCommandType, cmd.Type, logger.KeyMessage, res.Response.Message)
	}

	c.remove(p)
	return res
}

func (c *Client) remove(p PendingRequest) {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("Failed to delete mailbox request", logger.KeyFile, p.Name, logger.KeyError, err)
	}
}

// List returns the pending request files in consumption order. Staging
// files are never listed.
func (c *Client) List() ([]PendingRequest, error) {
	var paths []string
	if c.cfg.Layout == LayoutLegacy {
		paths = []string{filepath.Join(c.cfg.Dir, LegacyFileName)}
	} else {
		// The legacy file matches the pattern too, so old producers keep
		// working against a directory consumer.
		matches, err := filepath.Glob(filepath.Join(c.cfg.Dir, FilePattern))
		if err != nil {
			return nil, err
		}
		paths = matches
	}

	out := make([]PendingRequest, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, PendingRequest{
			Path:    path,
			Name:    info.Name(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	sortPending(out, c.cfg.Order)
	return out, nil
}

func sortPending(files []PendingRequest, order OrderPolicy) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if !a.ModTime.Equal(b.ModTime) {
			if order == OrderFIFO {
				return a.ModTime.Before(b.ModTime)
			}
			return a.ModTime.After(b.ModTime)
		}
		return a.Name < b.Name
	})
}

// Clear deletes every pending request and returns how many were removed.
func (c *Client) Clear() (int, error) {
	pending, err := c.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, p := range pending {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("Mailbox cleared", logger.KeyCount, removed)
	}
	return removed, errors.Join(errs...)
}
