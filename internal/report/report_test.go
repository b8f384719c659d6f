package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxscan/internal/scanner"
)

func sampleFinding() Finding {
	return Finding{
		Time:       time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		RunID:      "run-1",
		Account:    "jane@example.com",
		Source:     SourceAttachment,
		Kind:       scanner.KindCSV,
		MatchCount: 2,
		Folder:     "Inbox",
		Sender:     "hr@example.com",
		Recipient:  "jane@example.com",
		Subject:    "Payroll, March",
		Received:   time.Date(2024, 2, 29, 17, 0, 0, 0, time.UTC),
		Attachment: "people.csv",
		MessageID:  "m1",
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestReporter(t *testing.T, dir string, buf *bytes.Buffer, includePII bool) *Reporter {
	t.Helper()
	r, err := New(dir, Options{
		Logger:     slog.New(slog.NewJSONHandler(buf, nil)),
		IncludePII: includePII,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestReporter_WritesDailyCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var buf bytes.Buffer
	r := newTestReporter(t, dir, &buf, false)

	f := sampleFinding()
	require.NoError(t, r.Record(context.Background(), f))

	body := f
	body.Source, body.Kind, body.Attachment, body.MatchCount = SourceBody, "", "", 1
	require.NoError(t, r.Record(context.Background(), body))
	require.NoError(t, r.Close())

	path := filepath.Join(dir, "03-01-2024.csv")
	assert.Equal(t, path, r.Path(f.Time))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{
		"2024-03-01T09:30:00Z", "run-1", "jane@example.com", "attachment", "CSV", "2",
		"Inbox", "hr@example.com", "jane@example.com", "Payroll, March", "2024-02-29T17:00:00Z", "people.csv",
	}, rows[1])
	assert.Equal(t, "body", rows[2][3])
	assert.Equal(t, "", rows[2][4])
}

func TestReporter_AppendsWithoutSecondHeader(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	first := newTestReporter(t, dir, &buf, false)
	require.NoError(t, first.Record(context.Background(), sampleFinding()))
	require.NoError(t, first.Close())

	second := newTestReporter(t, dir, &buf, false)
	require.NoError(t, second.Record(context.Background(), sampleFinding()))
	require.NoError(t, second.Close())

	rows := readCSV(t, filepath.Join(dir, "03-01-2024.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, "time", rows[0][0])
	assert.NotEqual(t, "time", rows[2][0])
}

func TestReporter_RotatesPerDay(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	r := newTestReporter(t, dir, &buf, false)

	f := sampleFinding()
	require.NoError(t, r.Record(context.Background(), f))
	f.Time = f.Time.Add(24 * time.Hour)
	require.NoError(t, r.Record(context.Background(), f))
	require.NoError(t, r.Close())

	assert.Len(t, readCSV(t, filepath.Join(dir, "03-01-2024.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(dir, "03-02-2024.csv")), 2)
}

func TestReporter_DefaultsTimeToClock(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	r, err := New(dir, Options{Now: func() time.Time { return now }, Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	require.NoError(t, err)

	f := sampleFinding()
	f.Time = time.Time{}
	require.NoError(t, r.Record(context.Background(), f))
	require.NoError(t, r.Close())

	rows := readCSV(t, filepath.Join(dir, "12-31-2025.csv"))
	assert.Equal(t, "2025-12-31T23:00:00Z", rows[1][0])
}

func TestReporter_LogHashesPII(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(t, t.TempDir(), &buf, false)
	require.NoError(t, r.Record(context.Background(), sampleFinding()))

	out := buf.String()
	assert.NotContains(t, out, "jane@example.com")
	assert.NotContains(t, out, "hr@example.com")
	assert.NotContains(t, out, "Payroll")
	assert.Contains(t, out, `"user_hash":"user:`)
	assert.Contains(t, out, `"matches":2`)
}

func TestReporter_LogIncludesPIIWhenAsked(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(t, t.TempDir(), &buf, true)
	require.NoError(t, r.Record(context.Background(), sampleFinding()))

	out := buf.String()
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Payroll, March")
}

func TestReporter_Concurrent(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	r, err := New(dir, Options{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Record(context.Background(), sampleFinding()))
		}()
	}
	wg.Wait()
	require.NoError(t, r.Close())

	assert.Len(t, readCSV(t, filepath.Join(dir, "03-01-2024.csv")), 21)
}

func TestFinding_WithSpanContext(t *testing.T) {
	f := sampleFinding().WithSpanContext(context.Background())
	assert.Empty(t, f.TraceID)
}
