package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrKind      = "kind"
	attrSource    = "source"
	attrDomain    = "user_domain"
)

// Metrics provides methods for recording observability metrics.
// The zero value and a nil *Metrics are valid no-op recorders.
type Metrics struct {
	// Mail API metrics
	apiOperationsTotal   metric.Int64Counter
	apiOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthTokenTotal metric.Int64Counter

	// Scan metrics
	accountsScannedTotal    metric.Int64Counter
	messagesScannedTotal    metric.Int64Counter
	attachmentsScannedTotal metric.Int64Counter
	matchesTotal            metric.Int64Counter
	accountScanDuration     metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.apiOperationsTotal, err = meter.Int64Counter(
		"mail_api_operations_total",
		metric.WithDescription("Total number of mail API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_api_operations_total counter: %w", err)
	}

	m.apiOperationDuration, err = meter.Float64Histogram(
		"mail_api_operation_duration_seconds",
		metric.WithDescription("Mail API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthTokenTotal, err = meter.Int64Counter(
		"oauth_token_total",
		metric.WithDescription("Total number of OAuth token acquisitions by result"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_total counter: %w", err)
	}

	m.accountsScannedTotal, err = meter.Int64Counter(
		"accounts_scanned_total",
		metric.WithDescription("Total number of mailboxes scanned"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create accounts_scanned_total counter: %w", err)
	}

	m.messagesScannedTotal, err = meter.Int64Counter(
		"messages_scanned_total",
		metric.WithDescription("Total number of messages scanned"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_scanned_total counter: %w", err)
	}

	m.attachmentsScannedTotal, err = meter.Int64Counter(
		"attachments_scanned_total",
		metric.WithDescription("Total number of attachments processed by kind and outcome"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachments_scanned_total counter: %w", err)
	}

	m.matchesTotal, err = meter.Int64Counter(
		"sensitive_matches_total",
		metric.WithDescription("Total number of SSN-like pattern matches"),
		metric.WithUnit("{match}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sensitive_matches_total counter: %w", err)
	}

	m.accountScanDuration, err = meter.Float64Histogram(
		"account_scan_duration_seconds",
		metric.WithDescription("Time to scan one mailbox in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account_scan_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordMailAPIOperation records a mail API call with service, operation,
// status, and duration.
//
// Parameters:
//   - service: mail backend (graph, gmail)
//   - operation: operation type (get, list, token)
//   - status: result status ("success" or "error")
//   - duration: time taken for the operation
func (m *Metrics) RecordMailAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.apiOperationsTotal == nil || m.apiOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.apiOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthToken records where a token came from.
// Result should be one of: "cache", "fetched", "failure"
func (m *Metrics) RecordOAuthToken(ctx context.Context, result string) {
	if m == nil || m.oauthTokenTotal == nil {
		return
	}
	m.oauthTokenTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordAccountScanned records a finished mailbox scan. The address is
// reduced to its domain, and only attached when detailed labels are on.
func (m *Metrics) RecordAccountScanned(ctx context.Context, address, status string, duration time.Duration) {
	if m == nil || m.accountsScannedTotal == nil || m.accountScanDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && address != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(address)))
	}

	m.accountsScannedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.accountScanDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMessageScanned counts one message whose body was checked.
func (m *Metrics) RecordMessageScanned(ctx context.Context, service string) {
	if m == nil || m.messagesScannedTotal == nil {
		return
	}
	m.messagesScannedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrService, service)))
}

// RecordAttachmentScanned counts one attachment by format kind and outcome
// (matched, clean, skipped, failed). kind is empty for skipped attachments.
func (m *Metrics) RecordAttachmentScanned(ctx context.Context, kind, status string) {
	if m == nil || m.attachmentsScannedTotal == nil {
		return
	}
	if kind == "" {
		kind = StatusUnknown
	}
	m.attachmentsScannedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind),
		attribute.String(attrStatus, status),
	))
}

// RecordMatches adds count pattern matches found in source (body, attachment).
func (m *Metrics) RecordMatches(ctx context.Context, source, kind string, count int) {
	if m == nil || m.matchesTotal == nil || count <= 0 {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrSource, source),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(attrKind, kind))
	}
	m.matchesTotal.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}
