package ocr

import (
	"context"
	"io"
	"strings"
)

// PlainTextSource reads documents that already are text.
type PlainTextSource struct{}

// ExtractText returns the document bytes as text. PDFs and binary data are rejected.
func (PlainTextSource) ExtractText(_ context.Context, r io.Reader) (string, error) {
	const op = "PlainTextSource.ExtractText"

	data, err := readDocument(op, r)
	if err != nil {
		return "", err
	}
	if isPDF(data) {
		return "", WrapOCRError(op, ErrUnsupportedSource, "document is a PDF, use the pdf, vision or documentai source")
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", WrapOCRError(op, ErrEmptyDocument, "only whitespace")
	}
	if strings.IndexByte(text, 0) >= 0 {
		return "", WrapOCRError(op, ErrUnsupportedSource, "binary content")
	}
	return text, nil
}
