package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/inboxscan/internal/config"
	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/mailbox"
	"github.com/teemow/inboxscan/internal/report"
	"github.com/teemow/inboxscan/internal/scanner"
)

// ErrRecord wraps failures to write the compliance log. They abort the run.
var ErrRecord = errors.New("failed to record finding")

// Summary counts what a run did.
type Summary struct {
	Accounts       int
	Messages       int
	BodyHits       int
	AttachmentHits int
	Failures       int
}

func (s *Summary) add(o Summary) {
	s.Accounts += o.Accounts
	s.Messages += o.Messages
	s.BodyHits += o.BodyHits
	s.AttachmentHits += o.AttachmentHits
	s.Failures += o.Failures
}

// Options configures a Runner.
type Options struct {
	Source   mailbox.Source
	Pipeline *scanner.Pipeline
	Recorder report.Recorder

	// BodyMatcher checks message bodies. Nil selects the strict SSN pattern.
	BodyMatcher *scanner.Matcher

	// Folder restricts the scan to the top-level folder with this name.
	Folder string

	// RunID tags every finding. Empty generates a random one.
	RunID string

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Runner scans mailboxes one after another.
type Runner struct {
	source   mailbox.Source
	pipeline *scanner.Pipeline
	recorder report.Recorder
	body     *scanner.Matcher
	folder   string
	runID    string
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// New returns a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Source == nil {
		return nil, errors.New("mailbox source is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New("scanner pipeline is required")
	}
	if opts.Recorder == nil {
		return nil, errors.New("recorder is required")
	}

	body := opts.BodyMatcher
	if body == nil {
		var err error
		body, err = scanner.NewBodyMatcher("")
		if err != nil {
			return nil, err
		}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		source:   opts.Source,
		pipeline: opts.Pipeline,
		recorder: opts.Recorder,
		body:     body,
		folder:   opts.Folder,
		runID:    runID,
		logger:   logger.With(logging.RunID(runID), logging.Service(opts.Source.Name())),
		metrics:  opts.Metrics,
	}, nil
}

// RunID returns the identifier attached to the findings of this runner.
func (r *Runner) RunID() string {
	return r.runID
}

// Run scans every address in turn. A mailbox that fails is logged, counted
// in Failures and skipped. The returned error is non-nil only when the
// context ends or the compliance log cannot be written.
func (r *Runner) Run(ctx context.Context, addresses []string) (Summary, error) {
	var total Summary
	start := time.Now()

	r.logger.Info("scan started", slog.Int("targets", len(addresses)))

	for _, address := range addresses {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		sum, err := r.ScanAccount(ctx, address)
		total.add(sum)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrRecord) || ctx.Err() != nil {
			return total, err
		}
		total.Failures++
		r.logger.Error("mailbox scan failed", logging.UserHash(address), logging.Err(err))
	}

	r.logger.Info("scan finished",
		slog.Int("accounts", total.Accounts),
		slog.Int("messages", total.Messages),
		slog.Int("body_hits", total.BodyHits),
		slog.Int("attachment_hits", total.AttachmentHits),
		slog.Int("failures", total.Failures),
		logging.Duration(time.Since(start)))

	return total, nil
}

// ScanAccount scans the mailbox of one address. Per-message failures are
// counted in the summary; the error reports failures that stopped the
// mailbox as a whole.
func (r *Runner) ScanAccount(ctx context.Context, address string) (sum Summary, err error) {
	if !config.ValidEmail(address) {
		return sum, fmt.Errorf("invalid mailbox address %q", address)
	}

	ctx, span := instrumentation.StartAccountSpan(ctx, r.runID, logging.AnonymizeEmail(address))
	defer span.End()

	logger := logging.WithAccount(r.logger, address)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		d := time.Since(start)
		r.metrics.RecordAccountScanned(ctx, address, status, d)
		logger.Info("mailbox scanned",
			logging.Status(status),
			slog.Int("messages", sum.Messages),
			slog.Int("body_hits", sum.BodyHits),
			slog.Int("attachment_hits", sum.AttachmentHits),
			slog.Int("failures", sum.Failures),
			logging.Duration(d))
	}()

	user, err := r.source.ResolveUser(ctx, address)
	if err != nil {
		return sum, err
	}

	folderID := ""
	if r.folder != "" {
		folder, err := mailbox.ResolveFolder(ctx, r.source, user, r.folder)
		if err != nil {
			return sum, fmt.Errorf("folder %q: %w", r.folder, err)
		}
		folderID = folder.ID
	}
	sum.Accounts = 1

	err = r.source.ForeachMessage(ctx, user, folderID, func(msg *mailbox.Message) error {
		sum.Messages++
		return r.scanMessage(ctx, logger, user, msg, &sum)
	})
	return sum, err
}

func (r *Runner) scanMessage(ctx context.Context, logger *slog.Logger, user *mailbox.User, msg *mailbox.Message, sum *Summary) error {
	base := report.Finding{
		RunID:     r.runID,
		Account:   user.Address,
		Folder:    msg.Folder,
		Sender:    msg.Sender,
		Recipient: msg.Recipient(),
		Subject:   msg.Subject,
		Received:  msg.ReceivedAt,
		MessageID: msg.ID,
	}.WithSpanContext(ctx)

	if n := r.body.Count(msg.Body); n > 0 {
		f := base
		f.Source = report.SourceBody
		f.MatchCount = n
		if err := r.record(ctx, f); err != nil {
			return err
		}
		r.metrics.RecordMatches(ctx, report.SourceBody, "", n)
		sum.BodyHits++
	}

	if !msg.HasAttachments {
		return nil
	}

	attachments, err := r.source.ListAttachments(ctx, user, msg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sum.Failures++
		logger.Warn("failed to list attachments",
			logging.MessageID(msg.ID), logging.Err(err))
		return nil
	}

	results, err := r.pipeline.Scan(ctx, attachments)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sum.Failures++
		logger.Warn("attachments could not all be scanned",
			logging.MessageID(msg.ID), logging.Err(err))
	}

	for _, res := range results {
		f := base
		f.Source = report.SourceAttachment
		f.Kind = res.Kind
		f.MatchCount = res.MatchCount
		f.Attachment = res.Attachment
		if err := r.record(ctx, f); err != nil {
			return err
		}
		sum.AttachmentHits++
	}
	return nil
}

func (r *Runner) record(ctx context.Context, f report.Finding) error {
	if err := r.recorder.Record(ctx, f); err != nil {
		return fmt.Errorf("%w: %w", ErrRecord, err)
	}

	attrs := append(instrumentation.NewSpanAttributeBuilder().WithMessageID(f.MessageID).Build(),
		attribute.String(instrumentation.SpanAttrSource, f.Source),
		attribute.Int(instrumentation.SpanAttrMatches, f.MatchCount))
	if f.Kind != "" {
		attrs = append(attrs, attribute.String(instrumentation.SpanAttrAttachmentKind, string(f.Kind)))
	}
	instrumentation.AddSpanEvent(trace.SpanFromContext(ctx), "finding", attrs...)
	return nil
}
