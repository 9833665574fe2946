package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/marmos91/animbridge/pkg/protocol"
)

var (
	ErrRegistrySealed   = errors.New("handler registry is sealed")
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrReservedType     = errors.New("command type is reserved for a built-in")
	ErrEmptyType        = errors.New("command type must not be empty")
)

// HandlerFunc executes one command on the host thread. A returned error is
// converted into an error Response carrying the error text.
type HandlerFunc func(ctx context.Context, cmd protocol.Command) (protocol.Response, error)

// HandlerInfo describes a registered handler.
type HandlerInfo struct {
	Type        string `json:"type" yaml:"type"`
	Heavy       bool   `json:"heavy" yaml:"heavy"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type entry struct {
	fn   HandlerFunc
	info HandlerInfo
}

// Option configures a registration.
type Option func(*entry)

// WithHeavy marks the handler as heavy: blocking I/O or multi-step work that
// is capped per scheduler tick.
func WithHeavy() Option {
	return func(e *entry) { e.info.Heavy = true }
}

// WithDescription attaches a one-line description shown by status queries.
func WithDescription(desc string) Option {
	return func(e *entry) { e.info.Description = desc }
}

// Registry maps command types to handlers. It is written during startup and
// sealed before any goroutine reads it; lookups after Seal take no lock.
type Registry struct {
	handlers map[string]entry
	sealed   atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]entry)}
}

// Register adds fn under typ.
func (r *Registry) Register(typ string, fn HandlerFunc, opts ...Option) error {
	if r.sealed.Load() {
		return fmt.Errorf("register %q: %w", typ, ErrRegistrySealed)
	}
	if typ == "" {
		return ErrEmptyType
	}
	if isBuiltin(typ) {
		return fmt.Errorf("register %q: %w", typ, ErrReservedType)
	}
	if _, exists := r.handlers[typ]; exists {
		return fmt.Errorf("register %q: %w", typ, ErrDuplicateHandler)
	}
	if fn == nil {
		return fmt.Errorf("register %q: nil handler", typ)
	}

	e := entry{fn: fn, info: HandlerInfo{Type: typ}}
	for _, opt := range opts {
		opt(&e)
	}
	r.handlers[typ] = e
	return nil
}

// MustRegister is Register that panics on error, for static startup tables.
func (r *Registry) MustRegister(typ string, fn HandlerFunc, opts ...Option) {
	if err := r.Register(typ, fn, opts...); err != nil {
		panic(err)
	}
}

// Seal forbids further registration.
func (r *Registry) Seal() {
	r.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Lookup returns the handler for typ.
func (r *Registry) Lookup(typ string) (HandlerFunc, bool) {
	e, ok := r.handlers[typ]
	return e.fn, ok
}

// IsHeavy reports whether typ was registered as heavy. Built-ins and unknown
// types are light.
func (r *Registry) IsHeavy(typ string) bool {
	return r.handlers[typ].info.Heavy
}

// Handlers lists registered handlers sorted by type.
func (r *Registry) Handlers() []HandlerInfo {
	out := make([]HandlerInfo, 0, len(r.handlers))
	for _, e := range r.handlers {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
