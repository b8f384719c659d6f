package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DayLayout names the daily files (month-day-year).
const DayLayout = "01-02-2006"

// Recorder stores findings.
type Recorder interface {
	Record(ctx context.Context, f Finding) error
}

// Options configures a Reporter.
type Options struct {
	Logger *slog.Logger

	// IncludePII logs full addresses and subjects through Logger.
	IncludePII bool

	// Now overrides the clock.
	Now func() time.Time
}

// Reporter appends findings to the daily CSV file in a directory. It is safe
// for concurrent use.
type Reporter struct {
	dir        string
	logger     *slog.Logger
	includePII bool
	now        func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
	w    *csv.Writer
}

// New returns a Reporter writing below dir, which is created if needed.
func New(dir string, opts Options) (*Reporter, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	r := &Reporter{
		dir:        dir,
		logger:     opts.Logger,
		includePII: opts.IncludePII,
		now:        opts.Now,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Path returns the file that findings recorded at t go to.
func (r *Reporter) Path(t time.Time) string {
	return filepath.Join(r.dir, t.Format(DayLayout)+".csv")
}

// Record implements Recorder.
func (r *Reporter) Record(ctx context.Context, f Finding) error {
	if f.Time.IsZero() {
		f.Time = r.now()
	}

	if r.includePII {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "sensitive data found", f.LogAuditAttrs()...)
	} else {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "sensitive data found", f.LogAttrs()...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rotate(f.Time); err != nil {
		return err
	}
	if err := r.w.Write(f.record()); err != nil {
		return fmt.Errorf("failed to write finding: %w", err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("failed to write finding: %w", err)
	}
	return nil
}

// rotate makes sure the file for the day of t is open.
func (r *Reporter) rotate(t time.Time) error {
	day := t.Format(DayLayout)
	if r.file != nil && r.day == day {
		return nil
	}
	if err := r.closeFile(); err != nil {
		return err
	}

	path := r.Path(t)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open compliance log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to open compliance log: %w", err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	r.day, r.file, r.w = day, file, w
	return nil
}

func (r *Reporter) closeFile() error {
	if r.file == nil {
		return nil
	}
	r.w.Flush()
	err := errors.Join(r.w.Error(), r.file.Close())
	r.file, r.w, r.day = nil, nil, ""
	if err != nil {
		return fmt.Errorf("failed to close compliance log: %w", err)
	}
	return nil
}

// Close flushes and closes the current file.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeFile()
}
