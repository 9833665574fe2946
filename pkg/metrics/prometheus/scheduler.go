package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterSchedulerMetricsConstructor(NewSchedulerMetrics)
	metrics.RegisterTransportMetricsConstructor(NewTransportMetrics)
	metrics.RegisterMailboxMetricsConstructor(NewMailboxMetrics)
}

type schedulerMetrics struct {
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	drains          *prometheus.CounterVec
	drainDuration   prometheus.Histogram
	deferred        prometheus.Counter
	queueDepth      prometheus.Gauge
	panics          *prometheus.CounterVec
}

// NewSchedulerMetrics creates Prometheus-backed scheduler metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSchedulerMetrics() metrics.SchedulerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &schedulerMetrics{
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "animbridge_commands_total",
				Help: "Commands executed on the host thread by type and status",
			},
			[]string{"type", "status", "heavy"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "animbridge_command_duration_milliseconds",
				Help: "Handler execution time in milliseconds",
				Buckets: []float64{
					0.1,  // trivial queries
					0.5,  // selection changes
					1,    // blend updates
					4,    // quarter of a frame budget
					16,   // one frame budget
					50,   // one modal tick
					100,  // clip loads
					500,  // large clip application
					2000, // pathological
				},
			},
			[]string{"type"},
		),
		drains: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "animbridge_scheduler_drains_total",
				Help: "Scheduler drain invocations by stop reason",
			},
			[]string{"reason"},
		),
		drainDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "animbridge_scheduler_drain_duration_milliseconds",
				Help:    "Wall time spent in one scheduler drain",
				Buckets: []float64{0.05, 0.5, 2, 8, 16, 32, 100, 500},
			},
		),
		deferred: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "animbridge_scheduler_deferred_total",
				Help: "Commands pushed back to the queue for a later tick",
			},
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "animbridge_queue_depth",
				Help: "Commands waiting for the host thread",
			},
		),
		panics: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "animbridge_handler_panics_total",
				Help: "Recovered handler panics by command type",
			},
			[]string{"type"},
		),
	}
}

func (m *schedulerMetrics) ObserveCommand(commandType, status string, heavy bool, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(commandType, status, strconv.FormatBool(heavy)).Inc()
	m.commandDuration.WithLabelValues(commandType).Observe(float64(d.Microseconds()) / 1000.0)
}

func (m *schedulerMetrics) ObserveDrain(executed, deferred int, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.drains.WithLabelValues(reason).Inc()
	m.drainDuration.Observe(float64(d.Microseconds()) / 1000.0)
	if deferred > 0 {
		m.deferred.Add(float64(deferred))
	}
}

func (m *schedulerMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *schedulerMetrics) RecordPanic(commandType string) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(commandType).Inc()
}
