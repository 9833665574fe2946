package api

import "time"

// Defaults for the HTTP API.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 9877
)

// APIConfig configures the HTTP API server.
//
// The API exposes health probes, the host status snapshot and the asset
// catalog. It never executes commands: those go through the socket or the
// mailbox so they are serialized on the host thread.
type APIConfig struct {
	// Enabled controls whether the API server is started.
	// A pointer distinguishes "not set" (enabled) from "explicitly false".
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Host is the bind address. Default: 127.0.0.1
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP port. 0 in tests picks an ephemeral port once
	// defaults have been applied elsewhere. Default: 9877
	Port int `mapstructure:"port" validate:"omitempty,min=0,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled returns whether the API server is enabled. Defaults to true.
func (c *APIConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ApplyDefaults fills in zero values. Port is left alone so 0 can be used
// for an ephemeral port; the config layer sets DefaultPort.
func (c *APIConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
