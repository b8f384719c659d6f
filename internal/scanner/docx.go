package scanner

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

const (
	// documentPart is the main body part of a WordprocessingML package.
	documentPart = "word/document.xml"

	// DefaultMaxPartBytes caps the decompressed size of documentPart (64MB).
	DefaultMaxPartBytes = 64 * 1024 * 1024
)

// DOCXExtractor reads word/document.xml from the zip container, parses it and
// returns the re-serialized XML tree.
//
// The result is markup plus text, not a plain-text rendering, so numbers in
// attributes (revision ids, sizes) are scanned too. That trades precision for
// parity with the text the document actually carries.
type DOCXExtractor struct {
	// MaxPartBytes caps the decompressed size of word/document.xml.
	// Zero selects DefaultMaxPartBytes.
	MaxPartBytes int64
}

// Extract implements Extractor.
func (e *DOCXExtractor) Extract(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", parseError("docx", err)
	}
	defer zr.Close()

	limit := e.MaxPartBytes
	if limit <= 0 {
		limit = DefaultMaxPartBytes
	}
	data, err := readZipEntry(&zr.Reader, documentPart, limit)
	if err != nil {
		return "", parseError("docx", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", parseError("docx", fmt.Errorf("%s: %w", documentPart, err))
	}
	root := doc.Root()
	if root == nil {
		return "", parseError("docx", fmt.Errorf("%s: no root element", documentPart))
	}

	out := etree.NewDocument()
	out.SetRoot(root.Copy())
	text, err := out.WriteToString()
	if err != nil {
		return "", parseError("docx", err)
	}
	return text, nil
}

var errEntryNotFound = errors.New("entry not found")

// readZipEntry reads the entry called name, refusing entries that inflate
// beyond limit bytes whatever size their header declares.
func readZipEntry(zr *zip.Reader, name string, limit int64) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > uint64(limit) {
			return nil, fmt.Errorf("%s: %w", name, ErrTooLarge)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, limit+1))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("%s: %w", name, ErrTooLarge)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, errEntryNotFound)
}
