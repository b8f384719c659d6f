package scanner

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="urn:test:wordml"><w:body><w:p><w:r><w:t>Employee SSN: 123-45-6789</w:t></w:r></w:p></w:body></w:document>`

// zipBytes builds a zip archive from name/content pairs.
func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func docxBytes(t *testing.T, documentXML string) []byte {
	return zipBytes(t, map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		documentPart:          documentXML,
	})
}

// xlsxBytes builds a workbook where sheets[i] holds the cells of the i-th sheet
// keyed by cell reference.
func xlsxBytes(t *testing.T, sheets ...map[string]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, cells := range sheets {
		name := "Sheet1"
		if i > 0 {
			name = "Data" + string(rune('A'+i))
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for ref, value := range cells {
			require.NoError(t, f.SetCellValue(name, ref, value))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
