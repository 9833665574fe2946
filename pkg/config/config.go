package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/animbridge/internal/bytesize"
	"github.com/marmos91/animbridge/pkg/api"
	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ANIMLIB_SOCKET_PORT.
const EnvPrefix = "ANIMLIB"

// Config is the animbridge daemon configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (ANIMLIB_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`

	// API is the HTTP status and catalog API.
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Socket is the TCP command transport.
	Socket SocketConfig `mapstructure:"socket" yaml:"socket"`

	// Scheduler bounds the work done per host tick.
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`

	// Mailbox is the file-based fallback queue.
	Mailbox MailboxConfig `mapstructure:"mailbox" yaml:"mailbox"`

	// Host is the host loop and its initial scene.
	Host HostConfig `mapstructure:"host" yaml:"host"`

	// Catalog maps asset ids to clip files.
	Catalog catalog.Config `mapstructure:"catalog" yaml:"catalog"`

	// Resources controls where clip files are loaded from.
	Resources ResourcesConfig `mapstructure:"resources" yaml:"resources"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling ratio, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes: cpu, alloc_objects, alloc_space, inuse_objects,
	// inuse_space, goroutines, mutex_count, mutex_duration, block_count,
	// block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig controls Prometheus metrics. When enabled they are served
// on the API at /metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// SocketConfig configures the TCP command transport.
type SocketConfig struct {
	// Host is the bind address. Default: 127.0.0.1
	Host string `mapstructure:"host" validate:"required" yaml:"host"`

	// Port is the first port tried. Default: 9876
	Port int `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// MaxPortAttempts bounds the successive ports tried when the address is
	// in use. Default: 100
	MaxPortAttempts int `mapstructure:"max_port_attempts" validate:"min=1" yaml:"max_port_attempts"`

	AcceptTimeout time.Duration `mapstructure:"accept_timeout" yaml:"accept_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// MaxMessageSize bounds one request line. Default: 1Mi
	MaxMessageSize bytesize.ByteSize `mapstructure:"max_message_size" yaml:"max_message_size"`

	// MaxConnections caps live sessions. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0" yaml:"max_connections"`

	// PortFile receives the bound port so producers can find the daemon.
	PortFile string `mapstructure:"port_file" yaml:"port_file,omitempty"`
}

// SchedulerConfig bounds the work done per host tick.
type SchedulerConfig struct {
	// TimeBudget stops light work once spent. Default: 16ms
	TimeBudget time.Duration `mapstructure:"time_budget" validate:"gt=0" yaml:"time_budget"`

	// MaxHeavyPerTick caps heavy commands per tick. Default: 1
	MaxHeavyPerTick int `mapstructure:"max_heavy_per_tick" validate:"min=1" yaml:"max_heavy_per_tick"`

	// Requeue places deferred commands at the "head" or "tail".
	Requeue string `mapstructure:"requeue" validate:"oneof=head tail" yaml:"requeue"`
}

// MailboxConfig configures the file-based fallback queue.
type MailboxConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Dir is the mailbox root. Default: <tmp>/animation_library_queue
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Layout: "directory" (one file per request) or "legacy" (single file).
	Layout string `mapstructure:"layout" validate:"oneof=directory legacy" yaml:"layout"`

	// Order: "lifo" (newest first) or "fifo".
	Order string `mapstructure:"order" validate:"oneof=lifo fifo" yaml:"order"`

	// MaxPerPoll bounds the files consumed per poll. Default: 1
	MaxPerPoll int `mapstructure:"max_per_poll" validate:"min=1" yaml:"max_per_poll"`

	// MaxAge discards older requests unexecuted. 0 disables.
	MaxAge time.Duration `mapstructure:"max_age" validate:"min=0" yaml:"max_age"`

	// PollInterval is the idle poll interval. Default: 2s
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0" yaml:"poll_interval"`

	// Watch uses filesystem notifications to poll as soon as a file lands.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// HostConfig configures the host loop.
type HostConfig struct {
	// TickInterval is the host timer period. Default: 50ms
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0" yaml:"tick_interval"`

	// SceneFile is a YAML scene loaded at startup. Empty starts with an
	// empty scene.
	SceneFile string `mapstructure:"scene_file" yaml:"scene_file,omitempty"`
}

// ResourcesConfig controls where clips are loaded from.
type ResourcesConfig struct {
	// Root resolves relative clip paths. Defaults to the catalog library
	// when that is a local directory.
	Root string `mapstructure:"root" yaml:"root,omitempty"`

	// MaxClipSize bounds one clip read from S3. Default: 16Mi
	MaxClipSize bytesize.ByteSize `mapstructure:"max_clip_size" yaml:"max_clip_size"`

	S3 S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config configures s3:// clip references.
type S3Config struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	Region string `mapstructure:"region" yaml:"region,omitempty"`

	// Endpoint overrides the AWS endpoint (Localstack, MinIO).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// Load loads configuration from file, environment and defaults. A missing
// file is not an error: defaults plus environment overrides are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := registerDefaults(v); err != nil {
		return nil, err
	}

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration, requiring the file to exist and explaining
// how to create it when it does not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  animbridge init\n\n"+
				"Or specify a custom config file:\n"+
				"  animbridge <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  animbridge init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold database and S3 credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// readConfigFile reports whether a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook accepts "1Mi", "64KB" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook accepts "16ms", "2s" or raw nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/animbridge, falling back to
// ~/.config/animbridge and then the working directory.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "animbridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "animbridge")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory.
func GetConfigDir() string {
	return getConfigDir()
}
