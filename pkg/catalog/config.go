package catalog

import (
	"fmt"
	"os"
	"path/filepath"
)

// BackendType selects the catalog store implementation.
type BackendType string

const (
	// BackendMemory keeps entries in process memory. Entries are lost on exit.
	BackendMemory BackendType = "memory"

	// BackendSQLite uses a SQLite file through GORM (default).
	BackendSQLite BackendType = "sqlite"

	// BackendPostgres uses PostgreSQL through GORM.
	BackendPostgres BackendType = "postgres"

	// BackendBadger uses an embedded BadgerDB directory.
	BackendBadger BackendType = "badger"
)

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: $XDG_CONFIG_HOME/animbridge/catalog.db
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"` // disable, require, verify-ca, verify-full
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

// BadgerConfig contains BadgerDB-specific configuration.
type BadgerConfig struct {
	// Path is the database directory.
	// Default: $XDG_CONFIG_HOME/animbridge/catalog.badger
	Path string `mapstructure:"path" yaml:"path"`
}

// Config describes the catalog store and the library it indexes.
type Config struct {
	Backend BackendType `mapstructure:"backend" yaml:"backend" validate:"omitempty,oneof=memory sqlite postgres badger"`

	// LibraryPath is a directory or s3://bucket/prefix scanned for clips.
	LibraryPath string `mapstructure:"library_path" yaml:"library_path"`

	// ScanOnStart indexes LibraryPath when the daemon starts.
	ScanOnStart bool `mapstructure:"scan_on_start" yaml:"scan_on_start"`

	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	Badger   BadgerConfig   `mapstructure:"badger" yaml:"badger"`
}

func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "animbridge")
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}

	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = filepath.Join(configDir(), "catalog.db")
		}
	case BackendBadger:
		if c.Badger.Path == "" {
			c.Badger.Path = filepath.Join(configDir(), "catalog.badger")
		}
	case BackendPostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 10
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 2
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case BackendBadger:
		if c.Badger.Path == "" {
			return fmt.Errorf("badger path is required")
		}
	case BackendPostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported catalog backend: %s", c.Backend)
	}
	return nil
}
