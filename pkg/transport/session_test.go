package transport

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureQueue hands every enqueued command to the test.
type captureQueue struct {
	ch     chan dispatch.Envelope
	closed bool
}

func newCaptureQueue() *captureQueue {
	return &captureQueue{ch: make(chan dispatch.Envelope, 64)}
}

func (q *captureQueue) Enqueue(cmd protocol.Command, reply dispatch.Replier) error {
	if q.closed {
		return dispatch.ErrQueueClosed
	}
	q.ch <- dispatch.Envelope{Command: cmd, Reply: reply}
	return nil
}

func (q *captureQueue) next(t *testing.T) dispatch.Envelope {
	t.Helper()
	select {
	case env := <-q.ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no command enqueued")
		return dispatch.Envelope{}
	}
}

type pipeFixture struct {
	client   net.Conn
	reader   *bufio.Reader
	queue    *captureQueue
	session  *Session
	shutdown chan struct{}
}

func newPipeFixture(t *testing.T, cfg Config) *pipeFixture {
	t.Helper()
	server, client := net.Pipe()
	f := &pipeFixture{
		client:   client,
		reader:   bufio.NewReader(client),
		queue:    newCaptureQueue(),
		shutdown: make(chan struct{}),
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 50 * time.Millisecond
	}
	f.session = NewSession(server, cfg, f.queue, f.shutdown)
	go f.session.Serve()

	t.Cleanup(func() {
		_ = client.Close()
		select {
		case <-f.session.Done():
		case <-time.After(2 * time.Second):
			t.Error("session did not stop")
		}
	})
	return f
}

func (f *pipeFixture) send(t *testing.T, s string) {
	t.Helper()
	_ = f.client.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := f.client.Write([]byte(s))
	require.NoError(t, err)
}

func (f *pipeFixture) recv(t *testing.T) string {
	t.Helper()
	_ = f.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := f.reader.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestSessionPingInline(t *testing.T) {
	f := newPipeFixture(t, Config{})

	f.send(t, `{"type":"ping"}`+"\n")
	assert.Equal(t, `{"status":"success","message":"pong"}`+"\n", f.recv(t))

	select {
	case env := <-f.queue.ch:
		t.Fatalf("ping must not be queued, got %q", env.Command.Type)
	default:
	}
}

func TestSessionPartialMessages(t *testing.T) {
	f := newPipeFixture(t, Config{})

	f.send(t, `{"type":"blend_`)
	f.send(t, `pose","blend_factor":0.5}`)
	f.send(t, "\n{\"type\":\"get_status\"}\n")

	first := f.queue.next(t)
	assert.Equal(t, "blend_pose", first.Command.Type)
	assert.Equal(t, 0.5, first.Command.Payload["blend_factor"])
	assert.Equal(t, f.session.ID(), first.Command.ClientID)

	second := f.queue.next(t)
	assert.Equal(t, "get_status", second.Command.Type)
}

func TestSessionDecodeErrorKeepsConnection(t *testing.T) {
	f := newPipeFixture(t, Config{})

	f.send(t, "this is not json\n")
	line := f.recv(t)
	r, err := protocol.DecodeResponse([]byte(line))
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.True(t, strings.HasPrefix(r.Message, "Invalid JSON: "))

	f.send(t, `{"no_type":true}`+"\n")
	r, err = protocol.DecodeResponse([]byte(f.recv(t)))
	require.NoError(t, err)
	assert.Equal(t, "Missing command type", r.Message)

	f.send(t, "\n   \n"+`{"type":"ping"}`+"\n")
	assert.Contains(t, f.recv(t), "pong")
}

func TestSessionWritesPostedResponses(t *testing.T) {
	f := newPipeFixture(t, Config{ReadTimeout: time.Second})

	f.send(t, `{"type":"apply_pose","pose_id":"p1"}`+"\n"+`{"type":"select_bones","bone_names":["a"]}`+"\n")
	first := f.queue.next(t)
	second := f.queue.next(t)

	// The wake hook flushes well before the one-second read timeout.
	start := time.Now()
	first.Reply.Post(protocol.Success("Applied pose", nil))
	second.Reply.Post(protocol.Errorf("Bone not found: a"))

	assert.Equal(t, `{"status":"success","message":"Applied pose"}`+"\n", f.recv(t))
	assert.Equal(t, `{"status":"error","message":"Bone not found: a"}`+"\n", f.recv(t))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestSessionOversizedMessage(t *testing.T) {
	f := newPipeFixture(t, Config{MaxMessageSize: 32})

	f.send(t, `{"type":"apply_animation","animation_id":"`+strings.Repeat("x", 64))
	r, err := protocol.DecodeResponse([]byte(f.recv(t)))
	require.NoError(t, err)
	assert.Equal(t, "Message exceeds 32 bytes", r.Message)

	// The remainder of the oversized line is skipped.
	f.send(t, strings.Repeat("y", 10)+"\"}\n"+`{"type":"ping"}`+"\n")
	assert.Contains(t, f.recv(t), "pong")
}

func TestSessionQueueClosed(t *testing.T) {
	f := newPipeFixture(t, Config{})
	f.queue.closed = true

	f.send(t, `{"type":"apply_pose","pose_id":"p1"}`+"\n")
	r, err := protocol.DecodeResponse([]byte(f.recv(t)))
	require.NoError(t, err)
	assert.Contains(t, r.Message, "Host is shutting down")
}

func TestSessionStopsOnShutdown(t *testing.T) {
	f := newPipeFixture(t, Config{})

	f.send(t, `{"type":"apply_pose","pose_id":"p1"}`+"\n")
	env := f.queue.next(t)

	env.Reply.Post(protocol.Success("delivered before close", nil))
	close(f.shutdown)

	assert.Contains(t, f.recv(t), "delivered before close")
	select {
	case <-f.session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on shutdown")
	}
}

func TestSessionStopsOnPeerClose(t *testing.T) {
	f := newPipeFixture(t, Config{})
	require.NoError(t, f.client.Close())

	select {
	case <-f.session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after peer closed")
	}
}
