package scanner

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"
	xunicode "golang.org/x/text/encoding/unicode"
)

// wordDocumentStream holds the text of a Word 97-2003 binary document.
const wordDocumentStream = "WordDocument"

var whitespaceRun = regexp.MustCompile(`\s+`)

// WordBinaryExtractor salvages text from a legacy .doc file. It opens the OLE
// compound file, reads the WordDocument stream and emits two renderings of it:
// the printable 8-bit characters and a UTF-16LE decode. Word stores a piece
// either as CP1252 or as UTF-16, and without parsing the piece table one of
// the two renderings carries the digits intact while the other never forms a
// digit run, so matches are not double counted.
type WordBinaryExtractor struct {
	// MaxStreamBytes caps how much of the stream is read. Zero means 16 MiB.
	MaxStreamBytes int64
}

// Extract implements Extractor.
func (e *WordBinaryExtractor) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	cf, err := mscfb.New(f)
	if err != nil {
		return "", parseError("doc", err)
	}

	limit := e.MaxStreamBytes
	if limit <= 0 {
		limit = 16 * 1024 * 1024
	}

	for entry, err := cf.Next(); err == nil; entry, err = cf.Next() {
		if entry.Name != wordDocumentStream {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(entry, limit))
		if err != nil {
			return "", parseError("doc", fmt.Errorf("%s: %w", wordDocumentStream, err))
		}
		return salvageASCII(data) + "\n" + salvageUTF16(data), nil
	}
	return "", parseError("doc", fmt.Errorf("%s stream: %w", wordDocumentStream, errEntryNotFound))
}

func salvageASCII(data []byte) string {
	buf := make([]byte, len(data))
	for i, c := range data {
		if c == '\t' || c == '\n' || c == '\r' || (c >= 0x20 && c <= 0x7e) {
			buf[i] = c
		} else {
			buf[i] = ' '
		}
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(string(buf), " "))
}

func salvageUTF16(data []byte) string {
	if len(data)%2 == 1 {
		data = data[:len(data)-1]
	}
	dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder()
	decoded, err := dec.Bytes(data)
	if err != nil {
		return ""
	}
	text := strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, string(decoded))
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
