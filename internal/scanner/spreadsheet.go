package scanner

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

// SpreadsheetExtractor concatenates every cell of every worksheet, row-major,
// in workbook sheet order. Office Open XML workbooks are read with excelize
// and legacy BIFF workbooks with xls; the container is sniffed rather than
// trusted from the file name.
type SpreadsheetExtractor struct{}

// Extract implements Extractor.
func (e *SpreadsheetExtractor) Extract(path string) (string, error) {
	isZip, err := hasPrefix(path, zipMagic)
	if err != nil {
		return "", err
	}
	if isZip {
		return extractXLSX(path)
	}
	return extractXLS(path)
}

func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", parseError("xlsx", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", parseError("xlsx", fmt.Errorf("sheet %q: %w", sheet, err))
		}
		for _, row := range rows {
			writeCells(&b, row)
		}
	}
	return b.String(), nil
}

func extractXLS(path string) (text string, err error) {
	// xls panics on some malformed BIFF records.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = parseError("xls", fmt.Errorf("%v", r))
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return "", parseError("xls", err)
	}

	var b strings.Builder
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			var cells []string
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			writeCells(&b, cells)
		}
	}
	return b.String(), nil
}

func writeCells(b *strings.Builder, cells []string) {
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(cell)
	}
}

func hasPrefix(path string, magic []byte) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	head := make([]byte, len(magic))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, &IOError{Op: "read", Path: path, Err: err}
	}
	return bytes.Equal(head[:n], magic), nil
}
