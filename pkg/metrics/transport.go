package metrics

// Message kinds reported by TransportMetrics.MessageReceived.
const (
	MessagePing    = "ping"
	MessageCommand = "command"
	MessageInvalid = "invalid"
)

// TransportMetrics observes the socket listener and its sessions.
type TransportMetrics interface {
	ConnectionOpened()
	ConnectionClosed()
	ConnectionRejected()
	MessageReceived(kind string)
	ResponseSent()
	SetBoundPort(port int)
}

// NewTransportMetrics returns the Prometheus implementation, or nil when
// metrics are disabled.
func NewTransportMetrics() TransportMetrics {
	if !IsEnabled() || newTransportMetrics == nil {
		return nil
	}
	return newTransportMetrics()
}

var newTransportMetrics func() TransportMetrics

// RegisterTransportMetricsConstructor registers the Prometheus constructor.
func RegisterTransportMetricsConstructor(constructor func() TransportMetrics) {
	newTransportMetrics = constructor
}
