package scanner

import (
	"strings"
)

// Extractor converts one decoded attachment, stored at path, into a flat
// text blob that the matcher can scan.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(path string) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(path string) (string, error) {
	return f(path)
}

type registration struct {
	kind      Kind
	extractor Extractor
}

// Registry maps attachment extensions to their extractor and format kind.
type Registry struct {
	entries map[string]registration
}

// NewRegistry returns a registry with the built-in extractors.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]registration)}

	r.Register("csv", KindCSV, &CSVExtractor{})

	spreadsheet := &SpreadsheetExtractor{}
	r.Register("xlsx", KindExcel, spreadsheet)
	r.Register("xls", KindExcel, spreadsheet)

	r.Register("docx", KindDoc, &DOCXExtractor{})
	r.Register("doc", KindDoc, &WordBinaryExtractor{})

	return r
}

// Register adds or replaces the extractor for ext.
func (r *Registry) Register(ext string, kind Kind, e Extractor) {
	r.entries[normalizeExt(ext)] = registration{kind: kind, extractor: e}
}

// Lookup returns the extractor and kind registered for ext.
func (r *Registry) Lookup(ext string) (Extractor, Kind, bool) {
	reg, ok := r.entries[normalizeExt(ext)]
	if !ok {
		return nil, "", false
	}
	return reg.extractor, reg.kind, true
}

// Extract runs the extractor registered for ext against path.
func (r *Registry) Extract(ext, path string) (string, error) {
	e, _, ok := r.Lookup(ext)
	if !ok {
		return "", ErrUnsupportedFormat
	}
	return e.Extract(path)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
