package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/animbridge/internal/atomicfile"
	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/metrics"
)

var (
	// ErrNoFreePort is returned when every attempted port was in use.
	ErrNoFreePort = errors.New("no free port")

	// ErrAlreadyBound is returned by Bind on a second call.
	ErrAlreadyBound = errors.New("listener already bound")

	// ErrListenerClosed is returned by Bind or Serve after Stop.
	ErrListenerClosed = errors.New("listener closed")
)

// acceptBackoff is the pause after an Accept error that is neither a
// deadline timeout nor a closed listener, such as EMFILE.
const acceptBackoff = 50 * time.Millisecond

// Listener accepts TCP connections and runs one Session per connection.
// Sessions push commands onto the shared queue; they never touch host state.
//
// All exported methods are safe for concurrent use. Stop is idempotent.
type Listener struct {
	cfg     Config
	queue   dispatch.Enqueuer
	metrics metrics.TransportMetrics

	listenerMu sync.RWMutex
	listener   *net.TCPListener
	boundPort  atomic.Int32

	// Shutdown is closed when shutdown starts.
	Shutdown     chan struct{}
	shutdownOnce sync.Once

	// Ready is closed once the listener is bound.
	Ready     chan struct{}
	readyOnce sync.Once

	acceptDone chan struct{}
	serving    atomic.Bool

	sessions  sync.Map // id -> *Session
	connCount atomic.Int32
}

// Option configures a Listener.
type Option func(*Listener)

// WithMetrics attaches transport metrics. nil disables collection.
func WithMetrics(m metrics.TransportMetrics) Option {
	return func(l *Listener) { l.metrics = m }
}

// NewListener creates a stopped listener feeding queue.
func NewListener(cfg Config, queue dispatch.Enqueuer, opts ...Option) *Listener {
	cfg.applyDefaults()
	l := &Listener{
		cfg:        cfg,
		queue:      queue,
		Shutdown:   make(chan struct{}),
		Ready:      make(chan struct{}),
		acceptDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Bind opens the listening socket, trying successive ports while the address
// is in use. The port actually bound is available from BoundPort afterwards.
func (l *Listener) Bind() error {
	select {
	case <-l.Shutdown:
		return ErrListenerClosed
	default:
	}

	l.listenerMu.Lock()
	defer l.listenerMu.Unlock()
	if l.listener != nil {
		return ErrAlreadyBound
	}

	ln, port, err := bindWithRetry(l.cfg.Host, l.cfg.Port, l.cfg.MaxPortAttempts)
	if err != nil {
		return err
	}
	l.listener = ln
	l.boundPort.Store(int32(port))

	if port != l.cfg.Port && l.cfg.Port != 0 {
		logger.Warn("Configured port in use, bound to fallback port",
			logger.KeyPort, port, "configured_port", l.cfg.Port)
	}
	logger.Info("Socket listener bound", logger.KeyAddr, ln.Addr().String(), logger.KeyPort, port)

	if l.metrics != nil {
		l.metrics.SetBoundPort(port)
	}
	if l.cfg.PortFile != "" {
		if err := atomicfile.Write(l.cfg.PortFile, []byte(strconv.Itoa(port)+"\n"), 0o644); err != nil {
			logger.Warn("Failed to write port file", logger.KeyPath, l.cfg.PortFile, logger.KeyError, err)
		}
	}

	l.readyOnce.Do(func() { close(l.Ready) })
	return nil
}

func bindWithRetry(host string, port, attempts int) (*net.TCPListener, int, error) {
	if port == 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		p := port + i
		if p > 65535 {
			break
		}

		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			tcp := ln.(*net.TCPListener)
			return tcp, tcp.Addr().(*net.TCPAddr).Port, nil
		}
		if !isAddrInUse(err) {
			return nil, 0, fmt.Errorf("bind %s: %w", net.JoinHostPort(host, strconv.Itoa(p)), err)
		}

		logger.Debug("Port in use, trying next", logger.KeyPort, p, logger.KeyAttempt, i+1)
		lastErr = err
	}

	if lastErr == nil {
		return nil, 0, fmt.Errorf("%w on %s: port %d out of range", ErrNoFreePort, host, port)
	}
	return nil, 0, fmt.Errorf("%w on %s in ports %d-%d: %v",
		ErrNoFreePort, host, port, port+attempts-1, lastErr)
}

// Serve runs the accept loop until ctx is cancelled or Stop is called. It
// binds first when Bind has not been called.
func (l *Listener) Serve(ctx context.Context) error {
	l.listenerMu.RLock()
	bound := l.listener != nil
	l.listenerMu.RUnlock()
	if !bound {
		if err := l.Bind(); err != nil {
			return err
		}
	}
	if !l.serving.CompareAndSwap(false, true) {
		return errors.New("listener already serving")
	}
	defer close(l.acceptDone)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Socket listener shutdown signal received", logger.KeyError, ctx.Err())
			l.initiateShutdown()
		case <-l.Shutdown:
		}
	}()

	l.listenerMu.RLock()
	ln := l.listener
	l.listenerMu.RUnlock()

	for {
		select {
		case <-l.Shutdown:
			return nil
		default:
		}

		_ = ln.SetDeadline(time.Now().Add(l.cfg.AcceptTimeout))
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-l.Shutdown:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("Error accepting socket connection", logger.KeyError, err)
			if !l.pauseAccept(acceptBackoff) {
				return nil
			}
			continue
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		if l.cfg.MaxConnections > 0 && int(l.connCount.Load()) >= l.cfg.MaxConnections {
			logger.Warn("Connection limit reached, rejecting client",
				logger.KeyClientID, conn.RemoteAddr().String(),
				logger.KeyActive, l.connCount.Load())
			_ = conn.Close()
			if l.metrics != nil {
				l.metrics.ConnectionRejected()
			}
			continue
		}

		l.startSession(conn)
	}
}

// pauseAccept waits d before the next Accept. It returns false when shutdown
// starts first.
func (l *Listener) pauseAccept(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-l.Shutdown:
		return false
	case <-t.C:
		return true
	}
}

// Start binds and runs Serve in the background. The returned channel receives
// Serve's result.
func (l *Listener) Start(ctx context.Context) (<-chan error, error) {
	if err := l.Bind(); err != nil {
		return nil, err
	}
	errc := make(chan error, 1)
	go func() { errc <- l.Serve(ctx) }()
	return errc, nil
}

func (l *Listener) startSession(conn net.Conn) {
	s := newSession(conn, l.cfg, l.queue, l.metrics, l.Shutdown)

	l.sessions.Store(s.ID(), s)
	active := l.connCount.Add(1)
	if l.metrics != nil {
		l.metrics.ConnectionOpened()
	}
	logger.Info("Client connected", logger.KeyClientID, s.ID(), logger.KeyActive, active)

	go func() {
		defer func() {
			l.sessions.Delete(s.ID())
			remaining := l.connCount.Add(-1)
			if l.metrics != nil {
				l.metrics.ConnectionClosed()
			}
			logger.Info("Client disconnected", logger.KeyClientID, s.ID(), logger.KeyActive, remaining)
		}()
		s.Serve()
	}()
}

// initiateShutdown flips the shutdown flag, closes the listening socket and
// interrupts blocking reads. Safe to call many times.
func (l *Listener) initiateShutdown() {
	l.shutdownOnce.Do(func() {
		logger.Debug("Socket listener shutdown initiated")
		close(l.Shutdown)

		l.listenerMu.Lock()
		if l.listener != nil {
			if err := l.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				logger.Debug("Error closing socket listener", logger.KeyError, err)
			}
		}
		l.listenerMu.Unlock()

		l.interruptBlockingReads()
	})
}

func (l *Listener) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	l.sessions.Range(func(_, v any) bool {
		_ = v.(*Session).conn.SetReadDeadline(deadline)
		return true
	})
}

// Stop shuts the listener down: it closes the socket, joins the accept loop
// within ListenerJoinTimeout and each session within SessionJoinTimeout.
// Sessions that do not finish in time are force-closed. The port file is
// removed.
func (l *Listener) Stop(ctx context.Context) error {
	l.initiateShutdown()

	var errs []error
	if l.serving.Load() {
		if err := waitFor(ctx, l.acceptDone, l.cfg.ListenerJoinTimeout); err != nil {
			logger.Warn("Accept loop did not stop in time", logger.KeyError, err)
			errs = append(errs, fmt.Errorf("join listener: %w", err))
		}
	}

	forced := 0
	l.sessions.Range(func(_, v any) bool {
		s := v.(*Session)
		if err := waitFor(ctx, s.Done(), l.cfg.SessionJoinTimeout); err != nil {
			logger.Warn("Session did not stop in time, force-closing", logger.KeyClientID, s.ID())
			_ = s.conn.Close()
			forced++
		}
		return true
	})
	if forced > 0 {
		errs = append(errs, fmt.Errorf("%d sessions force-closed", forced))
	}

	if l.cfg.PortFile != "" && l.BoundPort() != 0 {
		if err := os.Remove(l.cfg.PortFile); err != nil && !os.IsNotExist(err) {
			logger.Debug("Failed to remove port file", logger.KeyPath, l.cfg.PortFile, logger.KeyError, err)
		}
	}

	logger.Info("Socket listener stopped")
	return errors.Join(errs...)
}

func waitFor(ctx context.Context, done <-chan struct{}, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BoundPort returns the port actually bound, or 0 before Bind.
func (l *Listener) BoundPort() int {
	return int(l.boundPort.Load())
}

// Addr returns the bound address, or "" before Bind.
func (l *Listener) Addr() string {
	l.listenerMu.RLock()
	defer l.listenerMu.RUnlock()
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

// ActiveSessions returns the number of live sessions.
func (l *Listener) ActiveSessions() int {
	return int(l.connCount.Load())
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ClientID    string    `json:"client_id"`
	ConnectedAt time.Time `json:"connected_at"`
	Pending     int       `json:"pending_responses"`
}

// Sessions lists live sessions.
func (l *Listener) Sessions() []SessionInfo {
	var out []SessionInfo
	l.sessions.Range(func(_, v any) bool {
		s := v.(*Session)
		out = append(out, SessionInfo{ClientID: s.ID(), ConnectedAt: s.connectedAt, Pending: s.replies.Pending()})
		return true
	})
	return out
}
