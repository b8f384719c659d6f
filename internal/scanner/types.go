package scanner

import (
	"path"
	"strings"
)

// Kind is the detected attachment category driving extraction.
type Kind string

const (
	KindCSV   Kind = "CSV"
	KindExcel Kind = "Excel"
	KindDoc   Kind = "Doc"
)

// DefaultAllowedExtensions are the attachment extensions the pipeline scans.
var DefaultAllowedExtensions = []string{"csv", "doc", "docx", "xlsx", "xls"}

// Attachment is one mail attachment as handed over by a mailbox client.
// ContentBytes holds the base64 encoded file content.
type Attachment struct {
	Name         string
	ContentType  string
	ContentBytes string
}

// Extension returns the lower-cased substring after the final dot of the
// attachment name, or "" if the name has no dot.
func (a Attachment) Extension() string {
	return Extension(a.Name)
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := path.Ext(strings.ReplaceAll(name, "\\", "/"))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// KindForExtension maps an extension to its format kind.
func KindForExtension(ext string) (Kind, bool) {
	switch strings.ToLower(ext) {
	case "csv":
		return KindCSV, true
	case "xlsx", "xls":
		return KindExcel, true
	case "docx", "doc":
		return KindDoc, true
	default:
		return "", false
	}
}

// Match is a single pattern hit inside a text blob.
type Match struct {
	Text  string
	Start int
	End   int
}

// MatchResult reports the pattern hits found in one attachment.
type MatchResult struct {
	Attachment string
	Kind       Kind
	MatchCount int
}
