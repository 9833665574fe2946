package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/marmos91/animbridge/pkg/protocol"
)

// Client is a synchronous line-protocol client: one request, one response.
// It is not safe for concurrent use.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial connects to addr ("host:port").
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, DefaultReadBufferSize),
		timeout: timeout,
	}, nil
}

// DialHostPort is Dial with separate host and port.
func DialHostPort(ctx context.Context, host string, port int, timeout time.Duration) (*Client, error) {
	return Dial(ctx, net.JoinHostPort(host, strconv.Itoa(port)), timeout)
}

// Send writes cmd and waits for the next response line.
func (c *Client) Send(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	line, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return protocol.Response{}, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := c.conn.Write(line); err != nil {
		return protocol.Response{}, fmt.Errorf("send %s: %w", cmd.Type, err)
	}

	raw, err := c.reader.ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return protocol.Response{}, ctx.Err()
		}
		return protocol.Response{}, fmt.Errorf("read response to %s: %w", cmd.Type, err)
	}
	return protocol.DecodeResponse(raw)
}

// Ping sends a ping and returns the round-trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	resp, err := c.Send(ctx, protocol.NewCommand(protocol.TypePing, nil))
	if err != nil {
		return 0, err
	}
	if !resp.OK() || resp.Message != "pong" {
		return 0, fmt.Errorf("unexpected ping reply: %s", resp)
	}
	return time.Since(start), nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
