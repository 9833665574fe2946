package prometheus

import (
	"github.com/marmos91/animbridge/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type transportMetrics struct {
	connections      prometheus.Gauge
	connectionsTotal *prometheus.CounterVec
	messages         *prometheus.CounterVec
	responses        prometheus.Counter
	boundPort        prometheus.Gauge
}

// NewTransportMetrics creates Prometheus-backed socket transport metrics.
func NewTransportMetrics() metrics.TransportMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &transportMetrics{
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "animbridge_socket_connections_active",
			Help: "Currently connected socket clients",
		}),
		connectionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "animbridge_socket_connections_total",
			Help: "Socket connections by outcome",
		}, []string{"outcome"}),
		messages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "animbridge_socket_messages_total",
			Help: "Messages received on the socket by kind",
		}, []string{"kind"}),
		responses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "animbridge_socket_responses_total",
			Help: "Responses written back to socket clients",
		}),
		boundPort: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "animbridge_socket_bound_port",
			Help: "Port the listener actually bound to",
		}),
	}
}

func (m *transportMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.connectionsTotal.WithLabelValues("accepted").Inc()
}

func (m *transportMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *transportMetrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues("rejected").Inc()
}

func (m *transportMetrics) MessageReceived(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *transportMetrics) ResponseSent() {
	if m == nil {
		return
	}
	m.responses.Inc()
}

func (m *transportMetrics) SetBoundPort(port int) {
	if m == nil {
		return
	}
	m.boundPort.Set(float64(port))
}
