// Package ocr turns invoice documents into raw text for the processing pipeline.
//
// Four sources are available:
//   - text: the document already is text (exports, copy-paste, previous OCR runs)
//   - pdf: the embedded text layer of a digital PDF, read locally
//   - vision: Google Cloud Vision document text detection for scanned PDFs and images
//   - documentai: the full text returned by a Google Document AI processor
//
// Required Environment Variables for the Google sources:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION, DOCUMENT_AI_PROCESSOR_ID (documentai only)
//
// Cloud Vision API Limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages for synchronous processing
package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
)

const (
	// MaxFileSizeBytes is the maximum document size accepted by every source (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous Vision processing
	MaxPagesSync = 5
)

// Source kinds accepted by NewSource.
const (
	KindText       = "text"
	KindPDF        = "pdf"
	KindVision     = "vision"
	KindDocumentAI = "documentai"
)

// TextSource extracts raw text from a document.
type TextSource interface {
	ExtractText(ctx context.Context, r io.Reader) (string, error)
}

// NewSource creates the text source for kind. Google sources read their credentials
// and processor settings from the environment.
func NewSource(ctx context.Context, kind string) (TextSource, error) {
	switch kind {
	case KindText, "":
		return PlainTextSource{}, nil
	case KindPDF:
		return PDFSource{}, nil
	case KindVision:
		source, err := NewVisionSource(ctx)
		if err != nil {
			return nil, err
		}
		return source, nil
	case KindDocumentAI:
		source, err := NewDocumentAISource(ctx, DocumentAIConfigFromEnv())
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	return nil, WrapOCRError("NewSource", ErrUnsupportedSource, fmt.Sprintf("unknown source %q", kind))
}

// readDocument reads r fully, enforcing MaxFileSizeBytes.
func readDocument(op string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSizeBytes+1))
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read document")
	}
	if len(data) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrPDFTooLarge, fmt.Sprintf("more than %d bytes", MaxFileSizeBytes))
	}
	if len(data) == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, "no bytes read")
	}
	return data, nil
}

func isPDF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}

func getEnvVar(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}
