package extract

import (
	"bytes"
	"context"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// PDFReader extracts text in-process using ledongthuc/pdf. Row-ordered
// extraction keeps tabular BOQ layouts roughly line-aligned, which the
// extraction model handles better than a single undifferentiated stream.
type PDFReader struct{}

// ExtractText returns the plain text of every page, one text row per line.
func (PDFReader) ExtractText(ctx context.Context, pdfData []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open pdf")
	}

	var b bytes.Buffer
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "extract: context cancelled")
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", eris.Wrapf(err, "extract: read page %d", pageIndex)
		}
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
				b.WriteByte(' ')
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
