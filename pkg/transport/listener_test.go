package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hostLoop drains the scheduler on a fixed tick, standing in for the host
// application's timer.
func hostLoop(t *testing.T, sched *dispatch.Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sched.Drain(ctx)
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func startListener(t *testing.T, cfg Config, queue dispatch.Enqueuer) *Listener {
	t.Helper()
	if cfg.AcceptTimeout == 0 {
		cfg.AcceptTimeout = 50 * time.Millisecond
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 50 * time.Millisecond
	}
	l := NewListener(cfg, queue)
	_, err := l.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Stop(context.Background()) })
	return l
}

func dial(t *testing.T, l *Listener) *Client {
	t.Helper()
	c, err := Dial(context.Background(), l.Addr(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestListenerPingPong(t *testing.T) {
	l := startListener(t, Config{}, dispatch.NewQueue())

	conn, err := net.Dial("tcp", l.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"type":"ping"}` + "\n"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"success","message":"pong"}`+"\n", string(buf[:n]))
}

func TestListenerPingWithoutHostTick(t *testing.T) {
	queue := dispatch.NewQueue()
	l := startListener(t, Config{}, queue)
	c := dial(t, l)

	rtt, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Positive(t, rtt)
	assert.Zero(t, queue.Len())
}

// occupiedPort returns a port that is held by a stub listener and whose
// successor is currently free.
func occupiedPort(t *testing.T) int {
	t.Helper()
	for i := 0; i < 20; i++ {
		stub, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := stub.Addr().(*net.TCPAddr).Port

		next, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port+1)))
		if err != nil {
			_ = stub.Close()
			continue
		}
		_ = next.Close()
		t.Cleanup(func() { _ = stub.Close() })
		return port
	}
	t.Skip("could not find two adjacent free ports")
	return 0
}

func TestListenerPortRetry(t *testing.T) {
	port := occupiedPort(t)

	l := startListener(t, Config{Port: port, MaxPortAttempts: 5}, dispatch.NewQueue())
	assert.Equal(t, port+1, l.BoundPort())
	assert.True(t, strings.HasSuffix(l.Addr(), ":"+strconv.Itoa(port+1)))

	c, err := DialHostPort(context.Background(), "127.0.0.1", l.BoundPort(), time.Second)
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Ping(context.Background())
	require.NoError(t, err)
}

func TestListenerNoFreePort(t *testing.T) {
	port := occupiedPort(t)

	l := NewListener(Config{Port: port, MaxPortAttempts: 1}, dispatch.NewQueue())
	err := l.Bind()
	require.ErrorIs(t, err, ErrNoFreePort)
	assert.Zero(t, l.BoundPort())
}

func TestBindWithRetryPortOutOfRange(t *testing.T) {
	_, _, err := bindWithRetry("127.0.0.1", 65536, 3)
	require.ErrorIs(t, err, ErrNoFreePort)
	assert.Contains(t, err.Error(), "out of range")
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestListenerPauseAccept(t *testing.T) {
	l := NewListener(Config{}, dispatch.NewQueue())

	start := time.Now()
	assert.True(t, l.pauseAccept(20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.NoError(t, l.Stop(context.Background()))
	start = time.Now()
	assert.False(t, l.pauseAccept(time.Minute))
	assert.Less(t, time.Since(start), time.Second)
}

func TestListenerBindTwice(t *testing.T) {
	l := startListener(t, Config{}, dispatch.NewQueue())
	assert.ErrorIs(t, l.Bind(), ErrAlreadyBound)
}

func TestListenerCommandRoundTrip(t *testing.T) {
	queue := dispatch.NewQueue()
	reg := dispatch.NewRegistry()
	reg.MustRegister("echo", func(_ context.Context, cmd protocol.Command) (protocol.Response, error) {
		return protocol.Success(fmt.Sprintf("echo %v", cmd.Payload["value"]), map[string]any{"client": cmd.ClientID}), nil
	})
	reg.Seal()
	hostLoop(t, dispatch.NewScheduler(queue, reg, dispatch.DefaultConfig()))

	l := startListener(t, Config{}, queue)
	c := dial(t, l)

	t.Run("RegisteredCommand", func(t *testing.T) {
		resp, err := c.Send(context.Background(), protocol.NewCommand("echo", map[string]any{"value": 42}))
		require.NoError(t, err)
		assert.Equal(t, protocol.StatusSuccess, resp.Status)
		assert.Equal(t, "echo 42", resp.Message)
		assert.NotEmpty(t, resp.Data["client"])
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		resp, err := c.Send(context.Background(), protocol.NewCommand("dance", nil))
		require.NoError(t, err)
		assert.Equal(t, protocol.StatusError, resp.Status)
		assert.Equal(t, "Unknown command type: dance", resp.Message)
	})

	t.Run("ResponsesInRequestOrder", func(t *testing.T) {
		conn, err := net.Dial("tcp", l.Addr())
		require.NoError(t, err)
		defer conn.Close()

		var batch strings.Builder
		for i := 0; i < 5; i++ {
			fmt.Fprintf(&batch, `{"type":"echo","value":%d}`+"\n", i)
		}
		_, err = conn.Write([]byte(batch.String()))
		require.NoError(t, err)

		reader := bufio.NewReader(conn)
		for i := 0; i < 5; i++ {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			raw, err := reader.ReadBytes('\n')
			require.NoError(t, err)
			resp, err := protocol.DecodeResponse(raw)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("echo %d", i), resp.Message)
		}
	})
}

func TestListenerConnectionLimit(t *testing.T) {
	l := startListener(t, Config{MaxConnections: 1}, dispatch.NewQueue())

	first := dial(t, l)
	_, err := first.Ping(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return l.ActiveSessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	second, err := Dial(context.Background(), l.Addr(), time.Second)
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Ping(context.Background())
	assert.Error(t, err)
}

func TestListenerPortFile(t *testing.T) {
	portFile := filepath.Join(t.TempDir(), "animbridge.port")

	l := NewListener(Config{PortFile: portFile, AcceptTimeout: 50 * time.Millisecond}, dispatch.NewQueue())
	_, err := l.Start(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(portFile)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(l.BoundPort())+"\n", string(data))

	require.NoError(t, l.Stop(context.Background()))
	_, err = os.Stat(portFile)
	assert.True(t, os.IsNotExist(err))
}

func TestListenerStopJoinsSessions(t *testing.T) {
	l := NewListener(Config{AcceptTimeout: 50 * time.Millisecond, ReadTimeout: time.Second}, dispatch.NewQueue())
	errc, err := l.Start(context.Background())
	require.NoError(t, err)

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = dial(t, l)
		_, err := clients[i].Ping(context.Background())
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return l.ActiveSessions() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, l.Sessions(), 3)

	require.NoError(t, l.Stop(context.Background()))
	assert.NoError(t, <-errc)
	assert.Eventually(t, func() bool { return l.ActiveSessions() == 0 }, 2*time.Second, 10*time.Millisecond)

	// Stop is idempotent and Bind is refused afterwards.
	assert.NoError(t, l.Stop(context.Background()))
	assert.ErrorIs(t, l.Bind(), ErrListenerClosed)
}

func TestListenerContextCancel(t *testing.T) {
	l := NewListener(Config{AcceptTimeout: 50 * time.Millisecond}, dispatch.NewQueue())
	ctx, cancel := context.WithCancel(context.Background())
	errc, err := l.Start(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	require.NoError(t, l.Stop(context.Background()))
}
