package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: inboxscan)
	ServiceName string

	// ServiceVersion is the version of the binary
	ServiceVersion string

	// Enabled determines if instrumentation is active (default: false).
	// A batch scan usually runs without a collector, so it is opt-in via
	// INSTRUMENTATION_ENABLED=true or the --metrics-addr flag.
	Enabled bool

	// MetricsExporter specifies the metrics exporter type
	// Options: "prometheus", "otlp", "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter specifies the tracing exporter type
	// Options: "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint
	// Example: "localhost:4318" (without protocol prefix)
	OTLPEndpoint string

	// OTLPInsecure controls whether to use insecure HTTP for OTLP export.
	// WARNING: spans carry mailbox metadata; keep TLS outside local testing.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 1.0)
	TraceSamplingRate float64

	// DetailedLabels adds the mailbox domain to per-account metrics.
	DetailedLabels bool

	// RunID is attached to the resource so every metric and span of one
	// scan shares it. Empty leaves it out.
	RunID string
}

// Environment variables read by DefaultConfig.
const (
	EnvServiceName    = "OTEL_SERVICE_NAME"
	EnvEnabled        = "INSTRUMENTATION_ENABLED"
	EnvMetrics        = "METRICS_EXPORTER"
	EnvTracing        = "TRACING_EXPORTER"
	EnvOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure   = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvSamplingRate   = "OTEL_TRACES_SAMPLER_ARG"
	EnvDetailedLabels = "METRICS_DETAILED_LABELS"
)

// DefaultConfig returns a Config with defaults overridden by environment variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envOr(EnvServiceName, "inboxscan", identity),
		ServiceVersion:    "unknown",
		Enabled:           envOr(EnvEnabled, false, strconv.ParseBool),
		MetricsExporter:   envOr(EnvMetrics, ExporterPrometheus, identity),
		TracingExporter:   envOr(EnvTracing, ExporterNone, identity),
		OTLPEndpoint:      envOr(EnvOTLPEndpoint, "", identity),
		OTLPInsecure:      envOr(EnvOTLPInsecure, false, strconv.ParseBool),
		TraceSamplingRate: envOr(EnvSamplingRate, 1.0, parseFloat),
		DetailedLabels:    envOr(EnvDetailedLabels, false, strconv.ParseBool),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}
	return nil
}

// envOr parses the variable key, falling back to def when it is unset or
// does not parse.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func identity(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// OAuth token results
	TokenResultCache   = "cache"
	TokenResultFetched = "fetched"
	TokenResultFailure = "failure"

	// Mail backends
	ServiceGraph = "graph"
	ServiceGmail = "gmail"

	// Attachment outcomes
	AttachmentMatched = "matched"
	AttachmentClean   = "clean"
	AttachmentSkipped = "skipped"
	AttachmentFailed  = "failed"

	// Match sources
	SourceBody       = "body"
	SourceAttachment = "attachment"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
