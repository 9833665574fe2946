package prometheus

import (
	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type mailboxMetrics struct {
	requests *prometheus.CounterVec
	pending  prometheus.Gauge
}

// NewMailboxMetrics creates Prometheus-backed mailbox metrics.
func NewMailboxMetrics() metrics.MailboxMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &mailboxMetrics{
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "animbridge_mailbox_requests_total",
			Help: "Mailbox request files consumed by layout and outcome",
		}, []string{"layout", "outcome"}),
		pending: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "animbridge_mailbox_pending",
			Help: "Request files observed in the mailbox at the last poll",
		}),
	}
}

func (m *mailboxMetrics) RequestProcessed(layout, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(layout, outcome).Inc()
}

func (m *mailboxMetrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}
