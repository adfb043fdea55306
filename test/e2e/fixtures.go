// Package e2e provides end-to-end tests; this file builds minimal binary files
// for the supported document formats.
package e2e

import (
	"archive/zip"
	"bytes"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions is the list of extensions exercised by file-based
// E2E tests. The extractor also supports .pdf, which is not generated here:
// there is no minimal PDF with extractable text worth hand-assembling, and
// PDF extraction is covered by the extractor's own tests.
var SupportedFileExtensions = []string{
	".txt", ".md", ".rst", ".docx", ".xlsx",
}

// WriteMinimalFile returns the bytes of a minimal file of the given extension
// whose extracted text equals text (modulo whitespace normalization). For
// plain types the content is the raw text; for binary types it is a minimal
// valid container holding the text. Text must not contain XML metacharacters.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md", ".rst":
		return []byte(text), nil
	case ".docx":
		return minimalDocx(text), nil
	case ".xlsx":
		return minimalXlsx(text), nil
	default:
		return []byte(text), nil
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalXlsx(text string) []byte {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", text)
	var buf bytes.Buffer
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}
