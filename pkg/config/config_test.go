package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/animbridge/internal/bytesize"
	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/metrics"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

socket:
  port: 7000

mailbox:
  dir: "`+yamlSafePath(tmpDir)+`/queue"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level normalized to 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Socket.Port != 7000 {
		t.Errorf("Expected socket port 7000, got %d", cfg.Socket.Port)
	}
	if cfg.Socket.Host != "127.0.0.1" {
		t.Errorf("Expected default socket host 127.0.0.1, got %q", cfg.Socket.Host)
	}
	if cfg.Scheduler.TimeBudget != 16*time.Millisecond {
		t.Errorf("Expected default time budget 16ms, got %v", cfg.Scheduler.TimeBudget)
	}
	if cfg.Scheduler.MaxHeavyPerTick != 1 {
		t.Errorf("Expected default heavy cap 1, got %d", cfg.Scheduler.MaxHeavyPerTick)
	}
	if cfg.Scheduler.Requeue != "tail" {
		t.Errorf("Expected default requeue 'tail', got %q", cfg.Scheduler.Requeue)
	}
	if !cfg.Mailbox.Enabled {
		t.Error("Expected mailbox enabled by default")
	}
	if cfg.Mailbox.Dir != tmpDir+"/queue" && cfg.Mailbox.Dir != yamlSafePath(tmpDir)+"/queue" {
		t.Errorf("Expected mailbox dir from file, got %q", cfg.Mailbox.Dir)
	}
	if cfg.Mailbox.Order != "lifo" {
		t.Errorf("Expected default order 'lifo', got %q", cfg.Mailbox.Order)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown_timeout 10s, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg.Socket.Port != 9876 {
		t.Errorf("Expected default socket port 9876, got %d", cfg.Socket.Port)
	}
	if cfg.API.Port != 9877 {
		t.Errorf("Expected default API port 9877, got %d", cfg.API.Port)
	}
	if cfg.Socket.MaxMessageSize != bytesize.MiB {
		t.Errorf("Expected default max message size 1Mi, got %v", cfg.Socket.MaxMessageSize)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[scheduler]
time_budget = "8ms"
requeue = "head"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.TimeBudget != 8*time.Millisecond {
		t.Errorf("Expected time budget 8ms, got %v", cfg.Scheduler.TimeBudget)
	}
	if cfg.Scheduler.Requeue != "head" {
		t.Errorf("Expected requeue 'head', got %q", cfg.Scheduler.Requeue)
	}
}

func TestLoad_DurationsAndSizes(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath := writeConfig(t, "config.yaml", `
socket:
  read_timeout: 250ms
  max_message_size: 64Ki
mailbox:
  layout: legacy
  order: fifo
  max_age: 1h
  poll_interval: 500ms
resources:
  max_clip_size: 2Mi
telemetry:
  profiling:
    profile_types: cpu,goroutines
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Socket.ReadTimeout != 250*time.Millisecond {
		t.Errorf("Expected read timeout 250ms, got %v", cfg.Socket.ReadTimeout)
	}
	if cfg.Socket.MaxMessageSize != 64*bytesize.KiB {
		t.Errorf("Expected max message size 64Ki, got %v", cfg.Socket.MaxMessageSize)
	}
	if cfg.Mailbox.MaxAge != time.Hour {
		t.Errorf("Expected max age 1h, got %v", cfg.Mailbox.MaxAge)
	}
	if cfg.Resources.MaxClipSize != 2*bytesize.MiB {
		t.Errorf("Expected max clip size 2Mi, got %v", cfg.Resources.MaxClipSize)
	}
	if got := cfg.Telemetry.Profiling.ProfileTypes; len(got) != 2 || got[1] != "goroutines" {
		t.Errorf("Expected two profile types, got %v", got)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANIMLIB_LOGGING_LEVEL", "ERROR")
	t.Setenv("ANIMLIB_SOCKET_PORT", "9900")
	t.Setenv("ANIMLIB_SCHEDULER_TIME_BUDGET", "4ms")
	t.Setenv("ANIMLIB_MAILBOX_ENABLED", "false")

	// socket.port and scheduler.* are absent from the file on purpose.
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Socket.Port != 9900 {
		t.Errorf("Expected port 9900 from env var, got %d", cfg.Socket.Port)
	}
	if cfg.Scheduler.TimeBudget != 4*time.Millisecond {
		t.Errorf("Expected time budget 4ms from env var, got %v", cfg.Scheduler.TimeBudget)
	}
	if cfg.Mailbox.Enabled {
		t.Error("Expected mailbox disabled from env var")
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(path)
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "animbridge init") {
		t.Errorf("Expected hint to run init, got: %v", err)
	}
}

func TestMustLoad_NoDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := MustLoad("")
	if err == nil {
		t.Fatal("Expected error when the default config file is missing")
	}
	if !strings.Contains(err.Error(), GetDefaultConfigPath()) {
		t.Errorf("Expected error to name %s, got: %v", GetDefaultConfigPath(), err)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "animbridge", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if DefaultConfigExists() {
		t.Error("Expected no default config in a fresh directory")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Socket.Port = 9999
	cfg.Socket.MaxMessageSize = 512 * bytesize.KiB
	cfg.Scheduler.TimeBudget = 12 * time.Millisecond
	cfg.Mailbox.Order = "fifo"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected mode 0600, got %o", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Socket.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", loaded.Socket.Port)
	}
	if loaded.Socket.MaxMessageSize != 512*bytesize.KiB {
		t.Errorf("Expected 512Ki, got %v", loaded.Socket.MaxMessageSize)
	}
	if loaded.Scheduler.TimeBudget != 12*time.Millisecond {
		t.Errorf("Expected 12ms, got %v", loaded.Scheduler.TimeBudget)
	}
	if loaded.Mailbox.Order != "fifo" {
		t.Errorf("Expected order 'fifo', got %q", loaded.Mailbox.Order)
	}
}

func TestHostConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Scheduler.Requeue = "head"
	cfg.Mailbox.Layout = "legacy"
	cfg.Mailbox.Order = "fifo"
	cfg.Socket.PortFile = "/tmp/animbridge.port"

	hc := cfg.HostConfig()

	if hc.Scheduler.Requeue != dispatch.RequeueHead {
		t.Errorf("Expected requeue head, got %q", hc.Scheduler.Requeue)
	}
	if hc.Scheduler.TimeBudget != dispatch.DefaultTimeBudget {
		t.Errorf("Expected default budget, got %v", hc.Scheduler.TimeBudget)
	}
	if hc.Mailbox.Layout != mailbox.LayoutLegacy {
		t.Errorf("Expected legacy layout, got %q", hc.Mailbox.Layout)
	}
	if hc.Mailbox.Order != mailbox.OrderFIFO {
		t.Errorf("Expected fifo order, got %q", hc.Mailbox.Order)
	}
	if hc.Socket.MaxMessageSize != 1<<20 {
		t.Errorf("Expected 1Mi message size, got %d", hc.Socket.MaxMessageSize)
	}
	if hc.Socket.PortFile != "/tmp/animbridge.port" {
		t.Errorf("Expected port file to be carried over, got %q", hc.Socket.PortFile)
	}
	if !hc.MailboxEnabled || !hc.WatchMailbox {
		t.Error("Expected mailbox enabled and watched by default")
	}
	if hc.ShutdownTimeout != cfg.ShutdownTimeout {
		t.Errorf("Expected shutdown timeout %v, got %v", cfg.ShutdownTimeout, hc.ShutdownTimeout)
	}
}

func TestS3Config(t *testing.T) {
	cfg := GetDefaultConfig()
	if _, ok := cfg.S3Config(); ok {
		t.Fatal("Expected S3 disabled by default")
	}

	cfg.Resources.S3.Enabled = true
	cfg.Resources.S3.Region = "eu-west-1"
	cfg.Resources.S3.Endpoint = "http://localhost:4566"

	s3cfg, ok := cfg.S3Config()
	if !ok {
		t.Fatal("Expected S3 enabled")
	}
	if s3cfg.Region != "eu-west-1" || s3cfg.Endpoint != "http://localhost:4566" {
		t.Errorf("Unexpected S3 config: %+v", s3cfg)
	}
	if s3cfg.MaxClipSize != int64(DefaultMaxClipSize) {
		t.Errorf("Expected max clip size %d, got %d", DefaultMaxClipSize, s3cfg.MaxClipSize)
	}
}

func TestInitializeMetrics(t *testing.T) {
	t.Cleanup(metrics.Reset)

	cfg := GetDefaultConfig()
	if InitializeMetrics(cfg) {
		t.Error("Expected metrics disabled by default")
	}
	if metrics.IsEnabled() {
		t.Error("Expected no registry when metrics are disabled")
	}

	cfg.Metrics.Enabled = true
	if !InitializeMetrics(cfg) {
		t.Error("Expected metrics enabled")
	}
	if metrics.GetRegistry() == nil {
		t.Error("Expected a registry once metrics are enabled")
	}
}
