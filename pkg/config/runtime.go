package config

import (
	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/internal/telemetry"
	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/host"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/marmos91/animbridge/pkg/resource"
	"github.com/marmos91/animbridge/pkg/transport"
)

// ServiceName is reported to the trace and profile backends.
const ServiceName = "animbridge"

// LoggerConfig converts the logging section for logger.Init.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// TelemetryConfig converts the telemetry section for telemetry.Init.
func (c *Config) TelemetryConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// ProfilingConfig converts the profiling section for telemetry.InitProfiling.
func (c *Config) ProfilingConfig(version string) telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        c.Telemetry.Profiling.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Profiling.Endpoint,
		ProfileTypes:   c.Telemetry.Profiling.ProfileTypes,
	}
}

// TransportConfig converts the socket section.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		Host:            c.Socket.Host,
		Port:            c.Socket.Port,
		MaxPortAttempts: c.Socket.MaxPortAttempts,
		AcceptTimeout:   c.Socket.AcceptTimeout,
		ReadTimeout:     c.Socket.ReadTimeout,
		WriteTimeout:    c.Socket.WriteTimeout,
		MaxMessageSize:  c.Socket.MaxMessageSize.Int(),
		MaxConnections:  c.Socket.MaxConnections,
		PortFile:        c.Socket.PortFile,
	}
}

// MailboxConfig converts the mailbox section. The same value configures
// the daemon's consumer and animbridgectl's writer, so both agree on the
// directory and layout.
func (c *Config) MailboxConfig() mailbox.Config {
	return mailbox.Config{
		Dir:          c.Mailbox.Dir,
		Layout:       mailbox.Layout(c.Mailbox.Layout),
		Order:        mailbox.OrderPolicy(c.Mailbox.Order),
		MaxPerPoll:   c.Mailbox.MaxPerPoll,
		MaxAge:       c.Mailbox.MaxAge,
		PollInterval: c.Mailbox.PollInterval,
	}
}

// HostConfig assembles the host.Config for host.New.
func (c *Config) HostConfig() host.Config {
	return host.Config{
		TickInterval:    c.Host.TickInterval,
		ShutdownTimeout: c.ShutdownTimeout,
		Scheduler: dispatch.Config{
			TimeBudget:      c.Scheduler.TimeBudget,
			MaxHeavyPerTick: c.Scheduler.MaxHeavyPerTick,
			Requeue:         dispatch.RequeuePolicy(c.Scheduler.Requeue),
		},
		Socket:         c.TransportConfig(),
		MailboxEnabled: c.Mailbox.Enabled,
		Mailbox:        c.MailboxConfig(),
		WatchMailbox:   c.Mailbox.Watch,
	}
}

// S3Config converts the resources.s3 section. ok is false when S3 is off.
func (c *Config) S3Config() (cfg resource.S3Config, ok bool) {
	if !c.Resources.S3.Enabled {
		return resource.S3Config{}, false
	}
	return resource.S3Config{
		Region:          c.Resources.S3.Region,
		Endpoint:        c.Resources.S3.Endpoint,
		AccessKeyID:     c.Resources.S3.AccessKeyID,
		SecretAccessKey: c.Resources.S3.SecretAccessKey,
		MaxClipSize:     c.Resources.MaxClipSize.Int64(),
	}, true
}

// InitializeMetrics creates the Prometheus registry when metrics are
// enabled and reports whether it did. Components created afterwards pick
// up real collectors; before that they get no-op ones.
func InitializeMetrics(cfg *Config) bool {
	if !cfg.Metrics.Enabled {
		logger.Debug("Metrics collection disabled")
		return false
	}
	metrics.InitRegistry()
	logger.Info("Metrics collection enabled", "path", "/metrics", "port", cfg.API.Port)
	return true
}
