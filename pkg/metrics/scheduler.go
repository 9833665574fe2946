package metrics

import "time"

// SchedulerMetrics observes the host-thread scheduler.
//
// Pass nil to disable collection; the scheduler checks for nil before every
// call.
type SchedulerMetrics interface {
	// ObserveCommand records one executed command with its outcome
	// ("success" or "error") and handler duration.
	ObserveCommand(commandType, status string, heavy bool, d time.Duration)

	// ObserveDrain records one Drain invocation.
	ObserveDrain(executed, deferred int, reason string, d time.Duration)

	// SetQueueDepth reports the number of commands still queued.
	SetQueueDepth(n int)

	// RecordPanic counts a recovered handler panic.
	RecordPanic(commandType string)
}

// NewSchedulerMetrics returns the Prometheus implementation, or nil when
// metrics are disabled.
func NewSchedulerMetrics() SchedulerMetrics {
	if !IsEnabled() || newSchedulerMetrics == nil {
		return nil
	}
	return newSchedulerMetrics()
}

var newSchedulerMetrics func() SchedulerMetrics

// RegisterSchedulerMetricsConstructor is called from pkg/metrics/prometheus
// during package initialization.
func RegisterSchedulerMetricsConstructor(constructor func() SchedulerMetrics) {
	newSchedulerMetrics = constructor
}
