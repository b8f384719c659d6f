// Package instrumentation provides OpenTelemetry metrics and tracing for
// inboxscan.
//
// Instrumentation is off by default. When enabled, metrics are exported
// through Prometheus (served by the scan command's --metrics-addr
// listener), OTLP, or stdout, and spans through OTLP or stdout.
//
// # Metrics
//
// Mail API:
//   - mail_api_operations_total: Counter of API calls by service, operation, status
//   - mail_api_operation_duration_seconds: Histogram of API call durations
//
// OAuth:
//   - oauth_token_total: Counter of token acquisitions by result (cache, fetched, failure)
//
// Scanning:
//   - accounts_scanned_total: Counter of mailboxes by status
//   - messages_scanned_total: Counter of messages by service
//   - attachments_scanned_total: Counter of attachments by kind and outcome
//   - sensitive_matches_total: Counter of SSN-like matches by source and kind
//   - account_scan_duration_seconds: Histogram of per-mailbox scan time
//
// Mailbox addresses are never used as metric labels. With DetailedLabels set,
// only the address domain is attached.
//
// # Configuration
//
//	INSTRUMENTATION_ENABLED=true
//	METRICS_EXPORTER=prometheus|otlp|stdout
//	TRACING_EXPORTER=otlp|stdout|none
//	OTEL_EXPORTER_OTLP_ENDPOINT=localhost:4318
//	OTEL_TRACES_SAMPLER_ARG=0.1
package instrumentation
