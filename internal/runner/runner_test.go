package runner

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/mailbox"
	"github.com/teemow/inboxscan/internal/report"
	"github.com/teemow/inboxscan/internal/scanner"
)

type fakeMailbox struct {
	folders     []mailbox.Folder
	messages    map[string][]*mailbox.Message
	attachments map[string][]scanner.Attachment

	attachmentErr error
	walkErr       error

	mu        sync.Mutex
	folderIDs []string
}

func (f *fakeMailbox) Name() string { return "fake" }

func (f *fakeMailbox) ResolveUser(_ context.Context, address string) (*mailbox.User, error) {
	if _, ok := f.messages[address]; !ok {
		return nil, mailbox.ErrUserNotFound
	}
	return &mailbox.User{ID: "id-" + address, Address: address}, nil
}

func (f *fakeMailbox) ForeachMessage(ctx context.Context, user *mailbox.User, folderID string, fn mailbox.MessageFunc) error {
	f.mu.Lock()
	f.folderIDs = append(f.folderIDs, folderID)
	f.mu.Unlock()

	for _, msg := range f.messages[user.Address] {
		if folderID != "" && msg.FolderID != folderID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	return f.walkErr
}

func (f *fakeMailbox) ListAttachments(_ context.Context, _ *mailbox.User, msg *mailbox.Message) ([]scanner.Attachment, error) {
	if f.attachmentErr != nil {
		return nil, f.attachmentErr
	}
	return f.attachments[msg.ID], nil
}

func (f *fakeMailbox) ListFolders(_ context.Context, _ *mailbox.User, _ string) ([]mailbox.Folder, error) {
	return f.folders, nil
}

type recorder struct {
	mu       sync.Mutex
	findings []report.Finding
	err      error
}

func (r *recorder) Record(_ context.Context, f report.Finding) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, f)
	return nil
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func newFixture() *fakeMailbox {
	received := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	return &fakeMailbox{
		folders: []mailbox.Folder{{ID: "f-inbox", Name: "Inbox"}, {ID: "f-hr", Name: "HR"}},
		messages: map[string][]*mailbox.Message{
			"jane@example.com": {
				{ID: "m1", Subject: "hello", Sender: "bob@example.com", Recipients: []string{"jane@example.com"},
					FolderID: "f-inbox", Folder: "Inbox", Body: "nothing to see", ReceivedAt: received},
				{ID: "m2", Subject: "my number", Sender: "bob@example.com", Recipients: []string{"jane@example.com"},
					FolderID: "f-inbox", Folder: "Inbox", Body: "it is 123-45-6789", ReceivedAt: received},
				{ID: "m3", Subject: "roster", Sender: "hr@example.com", Recipients: []string{"jane@example.com"},
					FolderID: "f-hr", Folder: "HR", Body: "see attached", HasAttachments: true, ReceivedAt: received},
			},
			"empty@example.com": {},
		},
		attachments: map[string][]scanner.Attachment{
			"m3": {
				{Name: "roster.csv", ContentBytes: encode("name,ssn\nA,123-45-6789\nB,987-65-4321\n")},
				{Name: "notes.txt", ContentBytes: encode("123-45-6789")},
				{Name: "clean.csv", ContentBytes: encode("name\nA\n")},
			},
		},
	}
}

func newTestRunner(t *testing.T, src mailbox.Source, rec report.Recorder, folder string) *Runner {
	t.Helper()
	pipeline, err := scanner.NewPipeline(scanner.Options{TempDir: t.TempDir()})
	require.NoError(t, err)
	r, err := New(Options{
		Source:   src,
		Pipeline: pipeline,
		Recorder: rec,
		Folder:   folder,
		RunID:    "run-test",
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	})
	require.NoError(t, err)
	return r
}

func TestNew_Validation(t *testing.T) {
	pipeline, err := scanner.NewPipeline(scanner.Options{})
	require.NoError(t, err)

	_, err = New(Options{Pipeline: pipeline, Recorder: &recorder{}})
	assert.Error(t, err)
	_, err = New(Options{Source: newFixture(), Recorder: &recorder{}})
	assert.Error(t, err)
	_, err = New(Options{Source: newFixture(), Pipeline: pipeline})
	assert.Error(t, err)

	r, err := New(Options{Source: newFixture(), Pipeline: pipeline, Recorder: &recorder{}})
	require.NoError(t, err)
	assert.Len(t, r.RunID(), 36)
}

func TestRun_RecordsBodyAndAttachmentFindings(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(t, newFixture(), rec, "")

	sum, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)

	assert.Equal(t, Summary{Accounts: 1, Messages: 3, BodyHits: 1, AttachmentHits: 1}, sum)
	require.Len(t, rec.findings, 2)

	body := rec.findings[0]
	assert.Equal(t, report.SourceBody, body.Source)
	assert.Equal(t, "m2", body.MessageID)
	assert.Equal(t, 1, body.MatchCount)
	assert.Equal(t, "run-test", body.RunID)
	assert.Equal(t, "jane@example.com", body.Account)
	assert.Equal(t, "jane@example.com", body.Recipient)
	assert.Equal(t, "Inbox", body.Folder)
	assert.Empty(t, body.Kind)

	att := rec.findings[1]
	assert.Equal(t, report.SourceAttachment, att.Source)
	assert.Equal(t, scanner.KindCSV, att.Kind)
	assert.Equal(t, "roster.csv", att.Attachment)
	assert.Equal(t, 2, att.MatchCount)
	assert.Equal(t, "HR", att.Folder)
	assert.Equal(t, "hr@example.com", att.Sender)
}

func TestRun_StrictBodyPattern(t *testing.T) {
	src := newFixture()
	src.messages["jane@example.com"] = []*mailbox.Message{
		{ID: "x1", Body: "000-12-3456"},
		{ID: "x2", Body: "666-12-3456"},
		{ID: "x3", Body: "123-00-4567"},
		{ID: "x4", Body: "123-45-0000"},
	}
	rec := &recorder{}
	r := newTestRunner(t, src, rec, "")

	sum, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Messages)
	assert.Zero(t, sum.BodyHits)
	assert.Empty(t, rec.findings)
}

func TestRun_FolderFilter(t *testing.T) {
	src := newFixture()
	rec := &recorder{}
	r := newTestRunner(t, src, rec, "HR")

	sum, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f-hr"}, src.folderIDs)
	assert.Equal(t, 1, sum.Messages)
	assert.Equal(t, 1, sum.AttachmentHits)
	assert.Zero(t, sum.BodyHits)
}

func TestRun_UnknownFolderFailsAccount(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(t, newFixture(), rec, "Archive")

	sum, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, Summary{Failures: 1}, sum)
}

func TestRun_SkipsBadTargets(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(t, newFixture(), rec, "")

	sum, err := r.Run(context.Background(), []string{"not-an-address", "ghost@example.com", "empty@example.com", "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Accounts)
	assert.Equal(t, 2, sum.Failures)
	assert.Equal(t, 3, sum.Messages)
	assert.Len(t, rec.findings, 2)
}

func TestScanAccount_UserNotFound(t *testing.T) {
	r := newTestRunner(t, newFixture(), &recorder{}, "")

	_, err := r.ScanAccount(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, mailbox.ErrUserNotFound)
}

func TestRun_AttachmentListingFailureIsCounted(t *testing.T) {
	src := newFixture()
	src.attachmentErr = errors.New("boom")
	rec := &recorder{}
	r := newTestRunner(t, src, rec, "")

	sum, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failures)
	assert.Equal(t, 3, sum.Messages)
	assert.Equal(t, 1, sum.BodyHits)
	assert.Zero(t, sum.AttachmentHits)
}

func TestRun_TraversalErrorFailsAccount(t *testing.T) {
	src := newFixture()
	src.walkErr = errors.New("page fetch failed")
	rec := &recorder{}
	r := newTestRunner(t, src, rec, "")

	sum, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failures)
	assert.Equal(t, 3, sum.Messages)
	assert.Len(t, rec.findings, 2)
}

func TestRun_RecorderFailureAborts(t *testing.T) {
	rec := &recorder{err: errors.New("disk full")}
	r := newTestRunner(t, newFixture(), rec, "")

	_, err := r.Run(context.Background(), []string{"jane@example.com", "empty@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecord)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestRunner(t, newFixture(), &recorder{}, "")

	sum, err := r.Run(ctx, []string{"jane@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Accounts)
}

func TestRun_WritesComplianceLog(t *testing.T) {
	dir := t.TempDir()
	rep, err := report.New(dir, report.Options{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rep.Close() })

	r := newTestRunner(t, newFixture(), rep, "")
	sum, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.BodyHits+sum.AttachmentHits)
}

func TestRun_AccountSpanCarriesFindings(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	rec := &recorder{}
	r := newTestRunner(t, newFixture(), rec, "")
	_, err := r.Run(context.Background(), []string{"jane@example.com"})
	require.NoError(t, err)

	var account sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "scan.account" {
			account = s
		}
	}
	require.NotNil(t, account)

	var runID string
	for _, kv := range account.Attributes() {
		if string(kv.Key) == instrumentation.SpanAttrRunID {
			runID = kv.Value.AsString()
		}
	}
	assert.Equal(t, "run-test", runID)

	var events int
	for _, e := range account.Events() {
		if e.Name == "finding" {
			events++
		}
	}
	assert.Equal(t, 2, events)

	for _, f := range rec.findings {
		assert.Equal(t, account.SpanContext().TraceID().String(), f.TraceID)
	}
}
