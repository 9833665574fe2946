// Package host wires the command pipeline together and runs the host tick.
//
// A Service owns the command queue, the handler registry, the scheduler, the
// mailbox consumer, the scene and the pose blend session. Network goroutines
// only enqueue; everything that touches host state runs on the tick
// goroutine, which is locked to its OS thread for the life of the service.
package host

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/dispatch"
	"github.com/marmos91/animbridge/pkg/handlers"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/pkg/resource"
	"github.com/marmos91/animbridge/pkg/scene"
	"github.com/marmos91/animbridge/pkg/transport"
	"golang.org/x/sync/errgroup"
)

// Defaults for the host loop.
const (
	DefaultTickInterval    = 50 * time.Millisecond
	DefaultShutdownTimeout = 5 * time.Second
)

// MsgShuttingDown is posted to commands still queued at shutdown.
const MsgShuttingDown = "Host is shutting down"

// Config configures a Service.
type Config struct {
	TickInterval    time.Duration
	ShutdownTimeout time.Duration

	Scheduler dispatch.Config
	Socket    transport.Config

	// MailboxEnabled turns the file mailbox consumer on.
	MailboxEnabled bool
	Mailbox        mailbox.Config

	// WatchMailbox wakes the consumer on file events instead of waiting for
	// the poll interval.
	WatchMailbox bool
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Deps are the collaborators a Service runs with.
type Deps struct {
	// Scene is the host scene. A new empty scene is used when nil.
	Scene *scene.Scene

	// Loader loads clips referenced by commands.
	Loader resource.Loader

	// Catalog resolves asset ids. Optional.
	Catalog catalog.Store

	// Scanner indexes the library into Catalog. Optional.
	Scanner *catalog.Scanner

	// LibraryRoot is scanned when Scan is called without a root.
	LibraryRoot string
}

// Service is the host: it owns every piece of host state and the goroutines
// that feed it.
type Service struct {
	cfg Config

	queue     *dispatch.Queue
	registry  *dispatch.Registry
	scheduler *dispatch.Scheduler
	listener  *transport.Listener
	mailbox   *mailbox.Client

	scene    *scene.Scene
	handlers *handlers.Handlers
	catalog  catalog.Store
	scanner  *catalog.Scanner
	library  string

	status    atomic.Pointer[Status]
	lastDrain dispatch.DrainStats
	consumed  int
	startedAt time.Time
	running   atomic.Bool
}

// New builds a Service. The registry is sealed before New returns.
func New(cfg Config, deps Deps) (*Service, error) {
	cfg.applyDefaults()
	if deps.Loader == nil {
		return nil, errors.New("host: a resource loader is required")
	}
	sc := deps.Scene
	if sc == nil {
		sc = scene.New()
	}

	s := &Service{
		cfg:       cfg,
		queue:     dispatch.NewQueue(),
		registry:  dispatch.NewRegistry(),
		scene:     sc,
		catalog:   deps.Catalog,
		scanner:   deps.Scanner,
		library:   deps.LibraryRoot,
		startedAt: time.Now(),
	}

	s.handlers = handlers.New(sc, deps.Loader, deps.Catalog)
	if err := s.handlers.Register(s.registry); err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}
	s.registry.Seal()

	s.scheduler = dispatch.NewScheduler(s.queue, s.registry, cfg.Scheduler,
		dispatch.WithMetrics(metrics.NewSchedulerMetrics()),
		dispatch.WithStatus(s.statusData))

	s.listener = transport.NewListener(cfg.Socket, s.queue,
		transport.WithMetrics(metrics.NewTransportMetrics()))

	if cfg.MailboxEnabled {
		mb, err := mailbox.NewClient(cfg.Mailbox, s.scheduler,
			mailbox.WithMetrics(metrics.NewMailboxMetrics()))
		if err != nil {
			return nil, fmt.Errorf("mailbox: %w", err)
		}
		s.mailbox = mb
	}

	s.publishStatus()
	return s, nil
}

// Run binds the socket and runs the listener, the tick loop and the
// mailbox watcher until ctx is cancelled or one of them fails. Shutdown
// answers every queued command and joins the listener within
// ShutdownTimeout.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("host: already running")
	}
	if err := s.listener.Bind(); err != nil {
		return err
	}
	s.publishStatus()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.listener.Serve(gctx)
	})

	g.Go(func() error {
		return s.tickLoop(gctx)
	})

	if s.mailbox != nil && s.cfg.WatchMailbox {
		g.Go(func() error {
			if err := s.mailbox.Watch(gctx); err != nil {
				// Polling still covers the mailbox.
				logger.Warn("Mailbox watcher stopped", logger.KeyError, err)
			}
			return nil
		})
	}

	logger.Info("Host running",
		logger.KeyPort, s.listener.BoundPort(),
		"tick_interval", s.cfg.TickInterval.String(),
		"mailbox", s.mailbox != nil)

	err := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if stopErr := s.listener.Stop(stopCtx); stopErr != nil {
		logger.Warn("Listener stop incomplete", logger.KeyError, stopErr)
	}
	s.publishStatus()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// tickLoop is the host thread.
func (s *Service) tickLoop(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.rejectQueued()
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one host iteration: drain the queue, then consume the mailbox
// when it is due. It must only be called from the host thread; Run calls it
// on every tick.
func (s *Service) Tick(ctx context.Context) {
	s.lastDrain = s.scheduler.Drain(ctx)

	if s.mailbox != nil && s.mailbox.Due() {
		s.consumed += len(s.mailbox.Poll(ctx))
	}

	s.publishStatus()
}

// rejectQueued closes the queue and answers whatever is left in it.
func (s *Service) rejectQueued() {
	left := s.queue.Close()
	for _, env := range left {
		if env.Reply != nil {
			env.Reply.Post(protocol.Errorf("%s", MsgShuttingDown))
		}
	}
	if s.handlers.Blend().Active() {
		s.handlers.Blend().Abort()
	}
	if len(left) > 0 {
		logger.Info("Rejected queued commands at shutdown", logger.KeyCount, len(left))
	}
}

// ErrScanUnavailable is returned by Scan when no scanner or root is
// configured.
var ErrScanUnavailable = errors.New("catalog scanning is not configured")

// Scan indexes the library at root into the catalog; an empty root scans
// the configured library. It only touches the catalog store and may run on
// any goroutine.
func (s *Service) Scan(ctx context.Context, root string) (*catalog.ScanResult, error) {
	if root == "" {
		root = s.library
	}
	if s.scanner == nil || root == "" {
		return nil, ErrScanUnavailable
	}
	return s.scanner.Scan(ctx, root)
}

// Catalog returns the catalog store, or nil.
func (s *Service) Catalog() catalog.Store { return s.catalog }

// Listener returns the socket listener.
func (s *Service) Listener() *transport.Listener { return s.listener }

// Queue returns the command queue.
func (s *Service) Queue() *dispatch.Queue { return s.queue }

// Registry returns the sealed handler registry.
func (s *Service) Registry() *dispatch.Registry { return s.registry }

// Ready reports whether the socket is bound.
func (s *Service) Ready() bool { return s.listener.BoundPort() != 0 }
