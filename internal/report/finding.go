package report

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/scanner"
)

// Sources of a finding.
const (
	SourceBody       = instrumentation.SourceBody
	SourceAttachment = instrumentation.SourceAttachment
)

// Finding is one message body or attachment that matched the SSN pattern.
type Finding struct {
	Time       time.Time
	RunID      string
	Account    string
	Source     string
	Kind       scanner.Kind
	MatchCount int
	Folder     string
	Sender     string
	Recipient  string
	Subject    string
	Received   time.Time
	Attachment string
	MessageID  string
	TraceID    string
}

// WithSpanContext records the trace id of the span in ctx.
func (f Finding) WithSpanContext(ctx context.Context) Finding {
	f.TraceID = instrumentation.GetTraceID(ctx)
	return f
}

// header is the CSV column order.
var header = []string{
	"time", "run_id", "account", "source", "kind", "match_count",
	"folder", "sender", "recipient", "subject", "received", "attachment",
}

func (f *Finding) record() []string {
	received := ""
	if !f.Received.IsZero() {
		received = f.Received.UTC().Format(time.RFC3339)
	}
	return []string{
		f.Time.UTC().Format(time.RFC3339),
		f.RunID,
		f.Account,
		f.Source,
		string(f.Kind),
		strconv.Itoa(f.MatchCount),
		f.Folder,
		f.Sender,
		f.Recipient,
		f.Subject,
		received,
		f.Attachment,
	}
}

// LogAttrs returns attributes safe for operational logs: addresses are
// hashed and the subject is left out.
func (f *Finding) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.RunID(f.RunID),
		logging.UserHash(f.Account),
		slog.String("source", f.Source),
		logging.Matches(f.MatchCount),
		slog.String("folder", f.Folder),
		slog.String("sender_hash", logging.AnonymizeEmail(f.Sender)),
	}
	if f.Kind != "" {
		attrs = append(attrs, slog.String(logging.KeyKind, string(f.Kind)))
	}
	if f.Attachment != "" {
		attrs = append(attrs, logging.Attachment(f.Attachment))
	}
	if f.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", f.TraceID))
	}
	return attrs
}

// LogAuditAttrs returns every field, including PII.
func (f *Finding) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.RunID(f.RunID),
		logging.Account(f.Account),
		slog.String("source", f.Source),
		logging.Matches(f.MatchCount),
		slog.String("folder", f.Folder),
		slog.String("sender", f.Sender),
		slog.String("recipient", f.Recipient),
		slog.String("subject", f.Subject),
		slog.Time("received", f.Received),
		logging.MessageID(f.MessageID),
	}
	if f.Kind != "" {
		attrs = append(attrs, slog.String(logging.KeyKind, string(f.Kind)))
	}
	if f.Attachment != "" {
		attrs = append(attrs, logging.Attachment(f.Attachment))
	}
	if f.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", f.TraceID))
	}
	return attrs
}
