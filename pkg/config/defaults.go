package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/animbridge/internal/bytesize"
	"github.com/marmos91/animbridge/pkg/api"
	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/host"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/resource"
	"github.com/marmos91/animbridge/pkg/transport"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultMaxClipSize bounds clips read from S3.
const DefaultMaxClipSize = 16 * bytesize.MiB

// ApplyDefaults replaces zero values with defaults. Explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyAPIDefaults(&cfg.API)
	applySocketDefaults(&cfg.Socket)
	applySchedulerDefaults(&cfg.Scheduler)
	applyMailboxDefaults(&cfg.Mailbox)
	applyHostDefaults(&cfg.Host)
	cfg.Catalog.ApplyDefaults()
	applyResourcesDefaults(&cfg.Resources, &cfg.Catalog)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyAPIDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = api.DefaultPort
	}
	cfg.ApplyDefaults()
}

func applySocketDefaults(cfg *SocketConfig) {
	if cfg.Host == "" {
		cfg.Host = transport.DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = transport.DefaultPort
	}
	if cfg.MaxPortAttempts == 0 {
		cfg.MaxPortAttempts = transport.DefaultMaxPortAttempts
	}
	if cfg.AcceptTimeout == 0 {
		cfg.AcceptTimeout = transport.DefaultAcceptTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = transport.DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = transport.DefaultWriteTimeout
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = bytesize.ByteSize(transport.DefaultMaxMessageSize)
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.TimeBudget == 0 {
		cfg.TimeBudget = dispatch.DefaultTimeBudget
	}
	if cfg.MaxHeavyPerTick == 0 {
		cfg.MaxHeavyPerTick = dispatch.DefaultMaxHeavyPerTick
	}
	if cfg.Requeue == "" {
		cfg.Requeue = string(dispatch.RequeueTail)
	}
}

func applyMailboxDefaults(cfg *MailboxConfig) {
	if cfg.Dir == "" {
		cfg.Dir = mailbox.DefaultDir()
	}
	if cfg.Layout == "" {
		cfg.Layout = string(mailbox.LayoutDirectory)
	}
	if cfg.Order == "" {
		cfg.Order = string(mailbox.OrderLIFO)
	}
	if cfg.MaxPerPoll == 0 {
		cfg.MaxPerPoll = mailbox.DefaultMaxPerPoll
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = mailbox.DefaultPollInterval
	}
}

func applyHostDefaults(cfg *HostConfig) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = host.DefaultTickInterval
	}
}

func applyResourcesDefaults(cfg *ResourcesConfig, cat *catalog.Config) {
	if cfg.Root == "" && cat.LibraryPath != "" && !resource.IsS3URI(cat.LibraryPath) {
		cfg.Root = cat.LibraryPath
	}
	if cfg.MaxClipSize == 0 {
		cfg.MaxClipSize = DefaultMaxClipSize
	}
}

// GetDefaultConfig returns a Config with every default applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Mailbox: MailboxConfig{
			Enabled: true,
			Watch:   true,
		},
		Telemetry: TelemetryConfig{
			Insecure: true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// registerDefaults registers every default key with viper. Without this,
// AutomaticEnv only sees keys present in the config file, and
// ANIMLIB_SOCKET_PORT would be ignored when the file omits socket.port.
func registerDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to flatten defaults: %w", err)
	}
	setDefaults(v, "", tree)

	// Keys with no default are dropped by omitempty above.
	for _, key := range optionalKeys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

var optionalKeys = []string{
	"socket.port_file",
	"host.scene_file",
	"resources.root",
	"resources.s3.region",
	"resources.s3.endpoint",
	"resources.s3.access_key_id",
	"resources.s3.secret_access_key",
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
