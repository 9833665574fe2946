package dispatch

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/animbridge/pkg/protocol"
)

// ErrQueueClosed is returned by Push* after Close.
var ErrQueueClosed = errors.New("command queue closed")

// Replier receives the single Response produced for a Command.
type Replier interface {
	Post(protocol.Response)
}

// ReplyFunc adapts a function to Replier.
type ReplyFunc func(protocol.Response)

func (f ReplyFunc) Post(r protocol.Response) { f(r) }

// Envelope is a queued command plus the destination of its reply.
type Envelope struct {
	Command  protocol.Command
	Reply    Replier
	Enqueued time.Time
}

// Enqueuer is the producer side of the queue, held by transport sessions.
type Enqueuer interface {
	Enqueue(cmd protocol.Command, reply Replier) error
}

// Queue is an unbounded FIFO of Envelopes safe for concurrent producers and a
// single consumer.
type Queue struct {
	mu     sync.Mutex
	items  *list.List
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{items: list.New()}
}

// Enqueue appends cmd to the tail of the queue.
func (q *Queue) Enqueue(cmd protocol.Command, reply Replier) error {
	return q.PushBack(Envelope{Command: cmd, Reply: reply, Enqueued: time.Now()})
}

// PushBack appends env to the tail.
func (q *Queue) PushBack(env Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items.PushBack(env)
	return nil
}

// PushFront puts env back at the head, ahead of everything queued.
func (q *Queue) PushFront(env Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items.PushFront(env)
	return nil
}

// TryPop removes and returns the head without blocking.
func (q *Queue) TryPop() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.items.Front()
	if front == nil {
		return Envelope{}, false
	}
	q.items.Remove(front)
	return front.Value.(Envelope), true
}

// Len returns the number of queued envelopes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close rejects further pushes and returns whatever was still queued so the
// caller can answer it.
func (q *Queue) Close() []Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	rest := make([]Envelope, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		rest = append(rest, e.Value.(Envelope))
	}
	q.items.Init()
	return rest
}
