package metrics

// Outcomes reported by MailboxMetrics.RequestProcessed.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeCorrupt = "corrupt"
	OutcomeSkipped = "skipped"
	OutcomeExpired = "expired"
)

// MailboxMetrics observes the file-system fallback transport.
type MailboxMetrics interface {
	RequestProcessed(layout, outcome string)
	SetPending(n int)
}

// NewMailboxMetrics returns the Prometheus implementation, or nil when
// metrics are disabled.
func NewMailboxMetrics() MailboxMetrics {
	if !IsEnabled() || newMailboxMetrics == nil {
		return nil
	}
	return newMailboxMetrics()
}

var newMailboxMetrics func() MailboxMetrics

// RegisterMailboxMetricsConstructor registers the Prometheus constructor.
func RegisterMailboxMetricsConstructor(constructor func() MailboxMetrics) {
	newMailboxMetrics = constructor
}
