// Package catalog maps library asset ids to loadable clip locations.
//
// The host resolves the animation_id and pose_id fields of incoming commands
// through a Store. Stores come in three flavours: an in-process map, a SQL
// database through GORM (SQLite or PostgreSQL) and an embedded BadgerDB.
// A Scanner fills a store by indexing a library directory or S3 prefix.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/animbridge/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrNotFound is returned when no entry has the requested id.
	ErrNotFound = errors.New("catalog entry not found")

	// ErrInvalidEntry is returned by Put for entries missing required fields.
	ErrInvalidEntry = errors.New("invalid catalog entry")
)

// Entry kinds. They match the clip kinds of package resource.
const (
	KindAnimation = "animation"
	KindPose      = "pose"
)

// Entry is one indexed library asset.
type Entry struct {
	ID        string    `gorm:"primaryKey;size:255" json:"id" yaml:"id"`
	Name      string    `gorm:"not null" json:"name" yaml:"name"`
	Kind      string    `gorm:"index;size:32;not null" json:"kind" yaml:"kind"`
	Path      string    `gorm:"not null" json:"path" yaml:"path"`
	RigType   string    `gorm:"size:64" json:"rig_type,omitempty" yaml:"rig_type,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// TableName returns the table name for GORM.
func (Entry) TableName() string {
	return "catalog_entries"
}

// Validate checks required fields and defaults Kind to animation.
func (e *Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEntry)
	}
	if e.Path == "" {
		return fmt.Errorf("%w: path is required for %s", ErrInvalidEntry, e.ID)
	}
	if e.Kind == "" {
		e.Kind = KindAnimation
	}
	if e.Kind != KindAnimation && e.Kind != KindPose {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	if e.Name == "" {
		e.Name = e.ID
	}
	return nil
}

// Store persists catalog entries.
type Store interface {
	// Get returns the entry with id or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns entries sorted by id. An empty kind lists everything.
	List(ctx context.Context, kind string) ([]*Entry, error)

	// Put inserts or replaces an entry.
	Put(ctx context.Context, e *Entry) error

	// Delete removes an entry or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Healthcheck verifies the backend can serve requests.
	Healthcheck(ctx context.Context) error

	Close() error
}

// Open creates the store described by cfg.
func Open(cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog configuration: %w", err)
	}

	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendSQLite, BackendPostgres:
		s, err = NewGORMStore(cfg)
	case BackendBadger:
		s, err = NewBadgerStore(cfg.Badger.Path)
	default:
		err = fmt.Errorf("unsupported catalog backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return &tracedStore{Store: s}, nil
}

// tracedStore wraps lookups in a span.
type tracedStore struct {
	Store
}

func (t *tracedStore) Get(ctx context.Context, id string) (*Entry, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCatalogGet)
	defer span.End()
	span.SetAttributes(telemetry.Resource(id))

	e, err := t.Store.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return e, err
}
