package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for extensions that have no extractor.
	ErrUnsupportedFormat = errors.New("unsupported attachment format")

	// ErrDecode is returned when the attachment content is not valid base64.
	ErrDecode = errors.New("failed to decode attachment content")

	// ErrParse is returned when an extractor cannot interpret the content.
	ErrParse = errors.New("failed to parse attachment")

	// ErrTooLarge is returned when a decoded attachment exceeds the size limit.
	ErrTooLarge = errors.New("attachment exceeds maximum size")
)

// IOError reports a temp file failure. Unlike the data errors above it
// points at the environment, so the pipeline surfaces it to the caller.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// parseError wraps err so that errors.Is(err, ErrParse) holds along with
// any sentinel err carries.
func parseError(format string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrParse, format, err)
}

// IsDataError reports whether err is a per-attachment data problem that must
// not be propagated to the caller.
func IsDataError(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrParse) ||
		errors.Is(err, ErrTooLarge)
}
