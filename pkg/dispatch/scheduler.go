package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/internal/telemetry"
	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/marmos91/animbridge/pkg/protocol"
)

const (
	DefaultTimeBudget      = 16 * time.Millisecond
	DefaultMaxHeavyPerTick = 1
)

// RequeuePolicy decides where a deferred command goes.
type RequeuePolicy string

const (
	// RequeueTail sends the deferred command behind everything queued, so
	// light commands arriving later can overtake it.
	RequeueTail RequeuePolicy = "tail"
	// RequeueHead keeps the deferred command at the front of the queue.
	RequeueHead RequeuePolicy = "head"
)

// StopReason says why a Drain returned.
type StopReason string

const (
	StopEmpty    StopReason = "empty"
	StopBudget   StopReason = "budget"
	StopHeavyCap StopReason = "heavy_cap"
	StopCanceled StopReason = "canceled"
)

// Config bounds the work done per Drain.
type Config struct {
	TimeBudget      time.Duration
	MaxHeavyPerTick int
	Requeue         RequeuePolicy
}

// DefaultConfig returns the per-tick limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		TimeBudget:      DefaultTimeBudget,
		MaxHeavyPerTick: DefaultMaxHeavyPerTick,
		Requeue:         RequeueTail,
	}
}

func (c *Config) applyDefaults() {
	if c.TimeBudget <= 0 {
		c.TimeBudget = DefaultTimeBudget
	}
	if c.MaxHeavyPerTick <= 0 {
		c.MaxHeavyPerTick = DefaultMaxHeavyPerTick
	}
	if c.Requeue != RequeueHead {
		c.Requeue = RequeueTail
	}
}

// DrainStats summarizes one Drain call.
type DrainStats struct {
	Executed int
	Heavy    int
	Deferred int
	Elapsed  time.Duration
	Reason   StopReason
}

// StatusFunc supplies the data of the get_status built-in. It runs on the
// host thread.
type StatusFunc func() map[string]any

// Scheduler drains a Queue on the calling goroutine. It must only be driven
// from the host thread.
type Scheduler struct {
	queue    *Queue
	registry *Registry
	cfg      Config
	metrics  metrics.SchedulerMetrics
	status   StatusFunc
	now      func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMetrics attaches scheduler metrics. nil disables collection.
func WithMetrics(m metrics.SchedulerMetrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// WithStatus sets the provider for get_status.
func WithStatus(fn StatusFunc) SchedulerOption {
	return func(s *Scheduler) { s.status = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler over q and reg.
func NewScheduler(q *Queue, reg *Registry, cfg Config, opts ...SchedulerOption) *Scheduler {
	cfg.applyDefaults()
	s := &Scheduler{
		queue:    q,
		registry: reg,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective limits.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Drain executes queued commands until the queue is empty, the time budget
// is spent while light commands remain, or the heavy cap is reached.
func (s *Scheduler) Drain(ctx context.Context) DrainStats {
	start := s.now()
	var stats DrainStats

	for {
		if ctx.Err() != nil {
			stats.Reason = StopCanceled
			break
		}

		env, ok := s.queue.TryPop()
		if !ok {
			stats.Reason = StopEmpty
			break
		}

		heavy := s.registry.IsHeavy(env.Command.Type)
		if heavy && stats.Heavy >= s.cfg.MaxHeavyPerTick {
			s.requeue(env)
			stats.Deferred++
			stats.Reason = StopHeavyCap
			break
		}
		if !heavy && s.now().Sub(start) >= s.cfg.TimeBudget && s.queue.Len() > 0 {
			s.requeue(env)
			stats.Deferred++
			stats.Reason = StopBudget
			break
		}

		resp := s.run(ctx, env, heavy)
		if env.Reply != nil {
			env.Reply.Post(resp)
		}

		stats.Executed++
		if heavy {
			stats.Heavy++
		}
	}

	stats.Elapsed = s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.ObserveDrain(stats.Executed, stats.Deferred, string(stats.Reason), stats.Elapsed)
		s.metrics.SetQueueDepth(s.queue.Len())
	}
	if stats.Deferred > 0 {
		logger.Debug("Scheduler deferred work to next tick",
			logger.KeyReason, string(stats.Reason),
			logger.KeyExecuted, stats.Executed,
			logger.KeyQueueDepth, s.queue.Len())
	}
	return stats
}

func (s *Scheduler) requeue(env Envelope) {
	var err error
	if s.cfg.Requeue == RequeueHead {
		err = s.queue.PushFront(env)
	} else {
		err = s.queue.PushBack(env)
	}
	if err != nil && env.Reply != nil {
		env.Reply.Post(protocol.ErrorResponse(err))
	}
}

// Execute runs a single command immediately, bypassing the queue. It is used
// by transports that already run on the host thread.
func (s *Scheduler) Execute(ctx context.Context, cmd protocol.Command) protocol.Response {
	return s.run(ctx, Envelope{Command: cmd}, s.registry.IsHeavy(cmd.Type))
}

func (s *Scheduler) run(ctx context.Context, env Envelope, heavy bool) (resp protocol.Response) {
	cmd := env.Command
	start := s.now()

	ctx, span := telemetry.StartCommandSpan(ctx, cmd.Type, cmd.ClientID, heavy)
	defer span.End()

	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = &logger.LogContext{ClientID: cmd.ClientID, StartTime: start}
	}
	lc = lc.WithCommand(cmd.Type).WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	defer func() {
		if r := recover(); r != nil {
			resp = protocol.ErrorResponse(panicError(r))
			logger.ErrorCtx(ctx, "Handler panicked",
				logger.KeyError, resp.Message,
				logger.KeyStack, string(debug.Stack()))
			if s.metrics != nil {
				s.metrics.RecordPanic(cmd.Type)
			}
		}

		d := s.now().Sub(start)
		if !resp.OK() {
			telemetry.RecordError(ctx, errors.New(resp.Message))
		}
		telemetry.SetAttributes(ctx, telemetry.Status(string(resp.Status)))
		if s.metrics != nil {
			s.metrics.ObserveCommand(cmd.Type, string(resp.Status), heavy, d)
		}
		logger.DebugCtx(ctx, "Command executed",
			logger.KeyStatus, string(resp.Status),
			logger.KeyHeavy, heavy,
			logger.KeyDurationMs, float64(d.Microseconds())/1000.0)
	}()

	telemetry.WithCommandLabels(ctx, cmd.Type, func(ctx context.Context) {
		resp = s.dispatch(ctx, cmd)
	})
	return resp
}

func (s *Scheduler) dispatch(ctx context.Context, cmd protocol.Command) protocol.Response {
	switch cmd.Type {
	case protocol.TypePing:
		return protocol.Pong()
	case protocol.TypeGetStatus:
		return s.statusResponse()
	}

	fn, ok := s.registry.Lookup(cmd.Type)
	if !ok {
		logger.WarnCtx(ctx, "Unknown command type")
		return protocol.UnknownCommand(cmd.Type)
	}

	resp, err := fn(ctx, cmd)
	if err != nil {
		logger.WarnCtx(ctx, "Handler failed", logger.KeyError, err.Error())
		return protocol.ErrorResponse(err)
	}
	if resp.Status == "" {
		resp.Status = protocol.StatusSuccess
	}
	return resp
}

func (s *Scheduler) statusResponse() protocol.Response {
	data := map[string]any{
		"version":     protocol.Version,
		"queue_depth": s.queue.Len(),
	}
	if s.status != nil {
		for k, v := range s.status() {
			data[k] = v
		}
	}
	return protocol.Success("", data)
}

func panicError(r any) error {
	switch v := r.(type) {
	case error:
		return v
	case string:
		return errors.New(v)
	default:
		return fmt.Errorf("%v", v)
	}
}
