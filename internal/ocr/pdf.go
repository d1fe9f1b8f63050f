package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFSource reads the embedded text layer of digital PDFs. Scanned PDFs have no text
// layer and yield ErrEmptyDocument; use the vision or documentai source for those.
type PDFSource struct{}

// ExtractText returns the text of every page, one line per text row. Runs that are
// far apart on a row are separated by two spaces so table columns survive.
func (PDFSource) ExtractText(ctx context.Context, r io.Reader) (string, error) {
	const op = "PDFSource.ExtractText"

	data, err := readDocument(op, r)
	if err != nil {
		return "", err
	}
	if !isPDF(data) {
		return "", WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", WrapOCRError(op, ErrInvalidPDF, err.Error())
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", WrapOCRError(op, ErrContextCanceled, err.Error())
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", WrapOCRError(op, ErrInvalidPDF, fmt.Sprintf("page %d: %v", i, err))
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		for _, row := range rows {
			text.WriteString(joinRow(row.Content))
			text.WriteString("\n")
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", WrapOCRError(op, ErrEmptyDocument, "PDF has no text layer")
	}
	return text.String(), nil
}

// joinRow concatenates the text runs of one row, inserting a space for a small gap
// and a column break for a gap wider than two characters.
func joinRow(runs []pdf.Text) string {
	var b strings.Builder
	for i, t := range runs {
		if i > 0 {
			prev := runs[i-1]
			gap := t.X - (prev.X + prev.W)
			charWidth := prev.FontSize / 2
			if charWidth <= 0 {
				charWidth = 1
			}
			switch {
			case gap > 2*charWidth:
				b.WriteString("  ")
			case gap > charWidth/4:
				b.WriteString(" ")
			}
		}
		b.WriteString(t.S)
	}
	return strings.TrimSpace(b.String())
}
