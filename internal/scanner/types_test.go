package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.CSV", "csv"},
		{"archive.tar.xlsx", "xlsx"},
		{"noextension", ""},
		{"trailingdot.", ""},
		{`C:\users\jane\ssn.docx`, "docx"},
		{"dir.d/file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.name))
			assert.Equal(t, tt.want, Attachment{Name: tt.name}.Extension())
		})
	}
}

func TestKindForExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Kind
		ok   bool
	}{
		{"csv", KindCSV, true},
		{"XLSX", KindExcel, true},
		{"xls", KindExcel, true},
		{"docx", KindDoc, true},
		{"doc", KindDoc, true},
		{"pdf", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			kind, ok := KindForExtension(tt.ext)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()
	for _, ext := range DefaultAllowedExtensions {
		_, kind, ok := r.Lookup(ext)
		assert.True(t, ok, "missing extractor for %s", ext)

		want, _ := KindForExtension(ext)
		assert.Equal(t, want, kind)
	}

	_, _, ok := r.Lookup(".CSV")
	assert.True(t, ok, "lookup normalizes dot and case")

	_, err := r.Extract("pdf", "/nonexistent")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
