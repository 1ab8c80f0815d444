package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFReader reads text layers with github.com/ledongthuc/pdf.
type PDFReader struct{}

// NewPDFReader returns the native text-layer reader.
func NewPDFReader() *PDFReader { return &PDFReader{} }

// PageTexts returns the plain text of up to maxPages pages. Malformed
// documents can make the parser panic; that is reported as an error.
func (PDFReader) PageTexts(ctx context.Context, data []byte, maxPages int) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := r.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return texts, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return texts, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}
