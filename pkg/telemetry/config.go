package telemetry

// Config contains the telemetry configuration for a fabricward run.
type Config struct {
	// ServiceName identifies the service in traces.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// Logging contains logging configuration.
	Logging LoggingConfig

	// Tracing contains tracing configuration.
	Tracing TracingConfig

	// Metrics contains metrics configuration.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging from the harness log
// parameters.
type LoggingConfig struct {
	// Enabled mirrors the harness dnac_log switch; when false only
	// warnings and errors are emitted.
	Enabled bool

	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format specifies the log format (console, json).
	Format string

	// FilePath, when non-empty, writes logs to a file instead of stderr.
	FilePath string

	// Append controls whether an existing log file is appended to or
	// truncated.
	Append bool
}

// TracingConfig configures the pipeline phase tracer.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	Enabled bool

	// Exporter selects the span exporter (stdout, none).
	Exporter string
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	Enabled bool

	// Namespace prefixes all metric names.
	Namespace string

	// Listen, when non-empty, serves /metrics on this address.
	Listen string
}

// DefaultConfig returns the telemetry defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		ServiceName: "fabricward",
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Format:  "console",
			Append:  true,
		},
		Tracing: TracingConfig{Exporter: "none"},
		Metrics: MetricsConfig{Enabled: true, Namespace: "fabricward"},
	}
}
