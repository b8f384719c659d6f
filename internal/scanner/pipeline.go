package scanner

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
)

const (
	// DefaultMaxAttachmentBytes caps the decoded size of a single attachment (25MB).
	DefaultMaxAttachmentBytes = 25 * 1024 * 1024

	tempFilePrefix = "inboxscan-"
)

// Options configures a Pipeline. The zero value is usable.
type Options struct {
	// Matcher scans extracted text. Nil selects the loose attachment pattern.
	Matcher *Matcher

	// AllowedExtensions limits which attachments are scanned.
	// Empty selects DefaultAllowedExtensions.
	AllowedExtensions []string

	// Registry supplies the extractors. Nil selects NewRegistry().
	Registry *Registry

	// TempDir receives the decoded attachments. Empty selects os.TempDir().
	TempDir string

	// MaxAttachmentBytes caps the decoded attachment size.
	// Zero selects DefaultMaxAttachmentBytes.
	MaxAttachmentBytes int64

	// Workers is the number of attachments processed at once. Values below 2
	// keep processing strictly sequential.
	Workers int

	Logger  logging.Logger
	Metrics *instrumentation.Metrics
}

// Pipeline decodes, extracts and pattern-matches mail attachments. It holds
// no per-call state, so one Pipeline can serve concurrent Scan calls.
type Pipeline struct {
	matcher  *Matcher
	allowed  map[string]bool
	registry *Registry
	tempDir  string
	maxBytes int64
	workers  int
	logger   logging.Logger
	metrics  *instrumentation.Metrics
}

// NewPipeline builds a Pipeline from opts.
func NewPipeline(opts Options) (*Pipeline, error) {
	p := &Pipeline{
		matcher:  opts.Matcher,
		allowed:  make(map[string]bool),
		registry: opts.Registry,
		tempDir:  opts.TempDir,
		maxBytes: opts.MaxAttachmentBytes,
		workers:  opts.Workers,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}

	if p.matcher == nil {
		m, err := NewAttachmentMatcher("")
		if err != nil {
			return nil, err
		}
		p.matcher = m
	}
	if p.registry == nil {
		p.registry = NewRegistry()
	}
	if p.maxBytes <= 0 {
		p.maxBytes = DefaultMaxAttachmentBytes
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.logger == nil {
		p.logger = logging.DefaultLogger()
	}
	if p.metrics == nil {
		p.metrics = &instrumentation.Metrics{}
	}

	exts := opts.AllowedExtensions
	if len(exts) == 0 {
		exts = DefaultAllowedExtensions
	}
	for _, ext := range exts {
		ext = normalizeExt(ext)
		if _, _, ok := p.registry.Lookup(ext); !ok {
			return nil, fmt.Errorf("%w: no extractor for allowed extension %q", ErrUnsupportedFormat, ext)
		}
		p.allowed[ext] = true
	}

	if p.tempDir != "" {
		if err := os.MkdirAll(p.tempDir, 0700); err != nil {
			return nil, &IOError{Op: "mkdir", Path: p.tempDir, Err: err}
		}
	}

	return p, nil
}

// Allowed reports whether attachments named name pass the extension filter.
func (p *Pipeline) Allowed(name string) bool {
	return p.allowed[Extension(name)]
}

// Scan processes attachments in order and returns one MatchResult for every
// attachment with at least one hit, in input order.
//
// Data errors are logged and skipped. Temp file failures are returned joined
// after all attachments were attempted, alongside the results collected.
func (p *Pipeline) Scan(ctx context.Context, attachments []Attachment) ([]MatchResult, error) {
	results := make([]*MatchResult, len(attachments))
	errs := make([]error, len(attachments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, a := range attachments {
		g.Go(func() error {
			results[i], errs[i] = p.ScanAttachment(gctx, a)
			return nil
		})
	}
	_ = g.Wait()

	ctxErr := ctx.Err()
	var out []MatchResult
	var envErrs []error
	for i, res := range results {
		if res != nil {
			out = append(out, *res)
		}
		err := errs[i]
		if err == nil || (ctxErr != nil && errors.Is(err, ctxErr)) {
			continue
		}
		var ioErr *IOError
		switch {
		case errors.As(err, &ioErr):
			envErrs = append(envErrs, err)
		case errors.Is(err, ErrUnsupportedFormat):
			p.logger.Debug("attachment skipped",
				logging.KeyAttachment, attachments[i].Name,
				logging.KeyReason, "extension not allowed")
		case IsDataError(err):
			p.logger.Warn("attachment could not be scanned",
				logging.KeyAttachment, attachments[i].Name,
				logging.KeyError, err.Error())
		default:
			envErrs = append(envErrs, err)
		}
	}

	if ctxErr != nil {
		envErrs = append(envErrs, ctxErr)
	}
	return out, errors.Join(envErrs...)
}

// ScanAttachment runs a single attachment through filter, decode, temp file,
// extract and match. It returns a nil result when the attachment has no hits.
// The temp file is removed before ScanAttachment returns on every path.
func (p *Pipeline) ScanAttachment(ctx context.Context, a Attachment) (res *MatchResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := a.Extension()
	if !p.allowed[ext] {
		p.metrics.RecordAttachmentScanned(ctx, "", instrumentation.AttachmentSkipped)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	extractor, kind, _ := p.registry.Lookup(ext)

	ctx, span := instrumentation.StartSpan(ctx, "scan.attachment",
		attribute.String(instrumentation.SpanAttrAttachmentKind, string(kind)))
	defer func() {
		instrumentation.SetSpanError(span, err)
		span.End()
	}()
	defer func() {
		p.metrics.RecordAttachmentScanned(ctx, string(kind), attachmentStatus(res, err))
	}()

	data, err := DecodeContent(a.ContentBytes)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), p.maxBytes)
	}

	path, err := p.writeTemp(ext, data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = errors.Join(err, &IOError{Op: "remove", Path: path, Err: rmErr})
		}
	}()

	text, err := extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	n := p.matcher.Count(text)
	if n == 0 {
		return nil, nil
	}
	p.metrics.RecordMatches(ctx, instrumentation.SourceAttachment, string(kind), n)
	return &MatchResult{Attachment: a.Name, Kind: kind, MatchCount: n}, nil
}

func (p *Pipeline) writeTemp(ext string, data []byte) (string, error) {
	f, err := os.CreateTemp(p.tempDir, tempFilePrefix+"*."+ext)
	if err != nil {
		return "", &IOError{Op: "create", Path: p.tempDir, Err: err}
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", &IOError{Op: "close", Path: path, Err: err}
	}
	return path, nil
}

// DecodeContent decodes base64 attachment content. Standard encoding is tried
// first, then the URL-safe and unpadded variants some mail APIs emit.
func DecodeContent(content string) ([]byte, error) {
	content = strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, content)

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(content)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrDecode, lastErr)
}

func attachmentStatus(res *MatchResult, err error) string {
	switch {
	case err != nil:
		return instrumentation.AttachmentFailed
	case res != nil:
		return instrumentation.AttachmentMatched
	default:
		return instrumentation.AttachmentClean
	}
}
