package telemetry

// Config configures trace export.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of command traces kept, 0 to 1.
	SampleRate float64
}

// DefaultConfig returns tracing disabled with a local collector address.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "animbridge",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
