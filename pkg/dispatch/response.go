package dispatch

import (
	"sync"

	"github.com/marmos91/animbridge/pkg/protocol"
)

// ResponseChannel is a per-connection outbound queue. The scheduler posts to
// it from the host thread; the owning session drains it from its own
// goroutine.
type ResponseChannel struct {
	mu     sync.Mutex
	items  []protocol.Response
	closed bool
	wake   func()
}

// NewResponseChannel creates a channel. wake, when non-nil, is called after
// every successful Post so the consumer can flush without waiting for its
// next poll. It must not block.
func NewResponseChannel(wake func()) *ResponseChannel {
	return &ResponseChannel{wake: wake}
}

// Post appends r. Posts after Close are dropped: the peer is gone.
func (c *ResponseChannel) Post(r protocol.Response) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items, r)
	c.mu.Unlock()

	if c.wake != nil {
		c.wake()
	}
}

// Drain removes and returns every queued response in post order.
func (c *ResponseChannel) Drain() []protocol.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return nil
	}
	out := c.items
	c.items = nil
	return out
}

// Pending returns the number of undelivered responses.
func (c *ResponseChannel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close drops pending responses and rejects future posts. It returns the
// number of responses that were never delivered.
func (c *ResponseChannel) Close() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := len(c.items)
	c.items = nil
	c.closed = true
	return dropped
}
