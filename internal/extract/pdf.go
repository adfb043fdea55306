package extract

import (
	"bytes"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/docsage/internal/apperr"
)

func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", apperr.Wrap(apperr.KindExtraction, "open PDF", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", apperr.Wrap(apperr.KindExtraction, "extract PDF page", err)
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}
