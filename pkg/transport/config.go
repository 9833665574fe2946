package transport

import "time"

// Defaults for the socket transport.
const (
	DefaultHost                = "127.0.0.1"
	DefaultPort                = 9876
	DefaultMaxPortAttempts     = 100
	DefaultAcceptTimeout       = 2 * time.Second
	DefaultReadTimeout         = 1 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultListenerJoinTimeout = 3 * time.Second
	DefaultSessionJoinTimeout  = 1 * time.Second
	DefaultReadBufferSize      = 4096
	DefaultMaxMessageSize      = 1 << 20
)

// Config configures the listener and its sessions.
type Config struct {
	// Host is the bind address. Loopback by default: the peer is trusted.
	Host string

	// Port is the first port tried. 0 asks the OS for an ephemeral port.
	Port int

	// MaxPortAttempts bounds how many successive ports are tried when the
	// address is in use.
	MaxPortAttempts int

	// AcceptTimeout bounds each Accept so shutdown is noticed promptly.
	AcceptTimeout time.Duration

	// ReadTimeout bounds each Read. Every timeout flushes queued responses.
	ReadTimeout time.Duration

	// WriteTimeout bounds each response write.
	WriteTimeout time.Duration

	ListenerJoinTimeout time.Duration
	SessionJoinTimeout  time.Duration

	ReadBufferSize int

	// MaxMessageSize is the longest line accepted before the message is
	// rejected and skipped.
	MaxMessageSize int

	// MaxConnections caps live sessions. 0 means unlimited.
	MaxConnections int

	// PortFile, when set, receives the bound port once listening.
	PortFile string
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.MaxPortAttempts <= 0 {
		c.MaxPortAttempts = DefaultMaxPortAttempts
	}
	if c.AcceptTimeout <= 0 {
		c.AcceptTimeout = DefaultAcceptTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ListenerJoinTimeout <= 0 {
		c.ListenerJoinTimeout = DefaultListenerJoinTimeout
	}
	if c.SessionJoinTimeout <= 0 {
		c.SessionJoinTimeout = DefaultSessionJoinTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
}
