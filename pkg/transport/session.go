package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/marmos91/animbridge/pkg/protocol"
)

// Session serves one client connection on a single goroutine. It reads
// newline-delimited JSON, answers ping inline, queues every other command and
// writes back the responses the scheduler posts to its ResponseChannel.
type Session struct {
	id          string
	conn        net.Conn
	cfg         Config
	queue       dispatch.Enqueuer
	metrics     metrics.TransportMetrics
	replies     *dispatch.ResponseChannel
	shutdown    <-chan struct{}
	connectedAt time.Time
	done        chan struct{}

	buf        []byte
	discarding bool
}

func newSession(conn net.Conn, cfg Config, queue dispatch.Enqueuer, m metrics.TransportMetrics, shutdown <-chan struct{}) *Session {
	s := &Session{
		id:          conn.RemoteAddr().String(),
		conn:        conn,
		cfg:         cfg,
		queue:       queue,
		metrics:     m,
		shutdown:    shutdown,
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
	// A post from the host thread cuts the current read short so the reply
	// goes out without waiting for the read timeout.
	s.replies = dispatch.NewResponseChannel(func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	return s
}

// NewSession creates a session over an already-connected conn. Used by
// tests and by embedders that accept connections themselves.
func NewSession(conn net.Conn, cfg Config, queue dispatch.Enqueuer, shutdown <-chan struct{}) *Session {
	cfg.applyDefaults()
	return newSession(conn, cfg, queue, nil, shutdown)
}

// ID returns the client id ("host:port").
func (s *Session) ID() string { return s.id }

// Done is closed when Serve returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Serve runs until the peer disconnects, a write fails or shutdown starts.
// Errors are scoped to this connection.
func (s *Session) Serve() {
	defer close(s.done)
	defer s.close()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in client session", logger.KeyClientID, s.id, logger.KeyError, fmt.Sprint(r))
		}
	}()

	chunk := make([]byte, s.cfg.ReadBufferSize)
	for {
		if err := s.flush(); err != nil {
			logger.Debug("Write failed, closing session", logger.KeyClientID, s.id, logger.KeyError, err)
			return
		}

		select {
		case <-s.shutdown:
			_ = s.flush()
			return
		default:
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if s.replies.Pending() > 0 {
			continue
		}

		n, err := s.conn.Read(chunk)
		if n > 0 {
			if werr := s.consume(chunk[:n]); werr != nil {
				logger.Debug("Write failed, closing session", logger.KeyClientID, s.id, logger.KeyError, werr)
				return
			}
		}
		if err == nil {
			continue
		}

		var ne net.Error
		switch {
		case errors.As(err, &ne) && ne.Timeout():
			continue
		case errors.Is(err, io.EOF):
			logger.Debug("Client closed connection", logger.KeyClientID, s.id)
			return
		case errors.Is(err, net.ErrClosed):
			return
		default:
			logger.Debug("Read failed, closing session", logger.KeyClientID, s.id, logger.KeyError, err)
			return
		}
	}
}

func (s *Session) close() {
	if dropped := s.replies.Close(); dropped > 0 {
		logger.Debug("Dropped undelivered responses", logger.KeyClientID, s.id, logger.KeyCount, dropped)
	}
	_ = s.conn.Close()
}

// consume appends data to the line buffer and handles every complete line.
// A partial line stays buffered for the next read.
func (s *Session) consume(data []byte) error {
	s.buf = append(s.buf, data...)
	base := s.buf[:0]

	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		line := s.buf[:i]
		s.buf = s.buf[i+1:]

		if s.discarding {
			s.discarding = false
			continue
		}
		if len(line) > s.cfg.MaxMessageSize {
			if err := s.rejectOversized(len(line)); err != nil {
				return err
			}
			continue
		}
		if err := s.handleLine(line); err != nil {
			return err
		}
	}

	if s.discarding {
		s.buf = base
		return nil
	}
	if len(s.buf) > s.cfg.MaxMessageSize {
		size := len(s.buf)
		s.buf = base
		s.discarding = true
		return s.rejectOversized(size)
	}

	s.buf = append(base, s.buf...)
	return nil
}

func (s *Session) rejectOversized(size int) error {
	err := protocol.TooLargeError(s.cfg.MaxMessageSize)
	logger.Warn("Message too large, discarding", logger.KeyClientID, s.id, logger.KeyLineBytes, size, logger.KeyError, err)
	if s.metrics != nil {
		s.metrics.MessageReceived(metrics.MessageInvalid)
	}
	return s.write(protocol.ErrorResponse(err))
}

func (s *Session) handleLine(line []byte) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	cmd, err := protocol.DecodeCommand(line)
	if err != nil {
		if s.metrics != nil {
			s.metrics.MessageReceived(metrics.MessageInvalid)
		}
		logger.Debug("Rejected malformed message", logger.KeyClientID, s.id, logger.KeyError, err)
		return s.write(protocol.ErrorResponse(err))
	}

	if cmd.Type == protocol.TypePing {
		if s.metrics != nil {
			s.metrics.MessageReceived(metrics.MessagePing)
		}
		return s.write(protocol.Pong())
	}

	if s.metrics != nil {
		s.metrics.MessageReceived(metrics.MessageCommand)
	}
	cmd.ClientID = s.id
	if err := s.queue.Enqueue(cmd, s.replies); err != nil {
		return s.write(protocol.Errorf("Host is shutting down: %v", err))
	}
	logger.Debug("Command queued", logger.KeyClientID, s.id, logger.KeyCommandType, cmd.Type)
	return nil
}

// flush writes every queued response, in post order.
func (s *Session) flush() error {
	for _, r := range s.replies.Drain() {
		if err := s.write(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) write(r protocol.Response) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if _, err := s.conn.Write(protocol.EncodeResponse(r)); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ResponseSent()
	}
	return nil
}
