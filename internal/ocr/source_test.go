package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
)

func TestPlainTextSource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "text",
			input: "Fecha: 15-01-2025\nTotal: 1500.00\n",
			want:  "Fecha: 15-01-2025\nTotal: 1500.00\n",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmptyDocument,
		},
		{
			name:    "whitespace",
			input:   " \n\t ",
			wantErr: ErrEmptyDocument,
		},
		{
			name:    "pdf",
			input:   "%PDF-1.7\n...",
			wantErr: ErrUnsupportedSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlainTextSource{}.ExtractText(context.Background(), strings.NewReader(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadDocumentTooLarge(t *testing.T) {
	_, err := readDocument("test", strings.NewReader(strings.Repeat("a", MaxFileSizeBytes+1)))
	assert.ErrorIs(t, err, ErrPDFTooLarge)

	var ocrErr *OCRError
	require.True(t, errors.As(err, &ocrErr))
	assert.Equal(t, "test", ocrErr.Op)
}

func TestPDFSourceRejectsNonPDF(t *testing.T) {
	_, err := PDFSource{}.ExtractText(context.Background(), strings.NewReader("Total: 1500.00"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	src, err := NewSource(ctx, KindText)
	require.NoError(t, err)
	assert.IsType(t, PlainTextSource{}, src)

	src, err = NewSource(ctx, KindPDF)
	require.NoError(t, err)
	assert.IsType(t, PDFSource{}, src)

	_, err = NewSource(ctx, "fax")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestNewDocumentAISourceRequiresProcessor(t *testing.T) {
	_, err := NewDocumentAISource(context.Background(), DocumentAIConfig{ProjectID: "demo"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewDocumentAISource(context.Background(), DocumentAIConfig{ProcessorID: "abc"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestJoinRow(t *testing.T) {
	runs := []pdf.Text{
		{S: "Servicio", X: 10, W: 40, FontSize: 10},
		{S: "de", X: 52, W: 10, FontSize: 10},
		{S: "consultoría", X: 64, W: 50, FontSize: 10},
		{S: "2", X: 200, W: 5, FontSize: 10},
		{S: "500.00", X: 260, W: 30, FontSize: 10},
	}
	assert.Equal(t, "Servicio de consultoría  2  500.00", joinRow(runs))

	glued := []pdf.Text{
		{S: "To", X: 10, W: 10, FontSize: 10},
		{S: "tal", X: 20, W: 15, FontSize: 10},
	}
	assert.Equal(t, "Total", joinRow(glued))
}

func TestFileText(t *testing.T) {
	page := func(text string) *visionpb.AnnotateImageResponse {
		return &visionpb.AnnotateImageResponse{FullTextAnnotation: &visionpb.TextAnnotation{Text: text}}
	}

	t.Run("pages joined", func(t *testing.T) {
		text, err := fileText(&visionpb.AnnotateFileResponse{
			Responses: []*visionpb.AnnotateImageResponse{page("FACTURA DE VENTA"), {}, page("Total: 1500.00")},
		})
		require.NoError(t, err)
		assert.Equal(t, "FACTURA DE VENTA\n\nTotal: 1500.00", text)
	})

	t.Run("too many pages", func(t *testing.T) {
		var pages []*visionpb.AnnotateImageResponse
		for i := 0; i <= MaxPagesSync; i++ {
			pages = append(pages, page("x"))
		}
		_, err := fileText(&visionpb.AnnotateFileResponse{Responses: pages})
		assert.ErrorIs(t, err, ErrTooManyPages)
	})

	t.Run("page error", func(t *testing.T) {
		_, err := fileText(&visionpb.AnnotateFileResponse{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &statuspb.Status{Message: "bad image"}}},
		})
		assert.ErrorIs(t, err, ErrOCRFailed)
		assert.Contains(t, err.Error(), "bad image")
	})

	t.Run("no text", func(t *testing.T) {
		_, err := fileText(&visionpb.AnnotateFileResponse{Responses: []*visionpb.AnnotateImageResponse{page("  ")}})
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestDocumentText(t *testing.T) {
	text, err := documentText(&documentaipb.Document{Text: "Total: 1500.00"})
	require.NoError(t, err)
	assert.Equal(t, "Total: 1500.00", text)

	_, err = documentText(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestProcessorName(t *testing.T) {
	cfg := DocumentAIConfig{ProjectID: "demo", Location: "eu", ProcessorID: "abc"}
	assert.Equal(t, "projects/demo/locations/eu/processors/abc", cfg.ProcessorName())

	cfg.ProcessorVersion = "v2"
	assert.Equal(t, "projects/demo/locations/eu/processors/abc/processorVersions/v2", cfg.ProcessorName())
}

func TestHandleProcessingError(t *testing.T) {
	p := &DocumentAISource{config: DocumentAIConfig{ProcessorID: "abc"}}
	tests := []struct {
		msg  string
		want error
	}{
		{"rpc error: code = PermissionDenied desc = PERMISSION_DENIED", ErrMissingCredentials},
		{"rpc error: code = ResourceExhausted", ErrQuotaExceeded},
		{"rpc error: code = NotFound desc = processor", ErrProcessorNotFound},
		{"rpc error: code = InvalidArgument", ErrInvalidPDF},
		{"context deadline exceeded", context.DeadlineExceeded},
		{"context canceled", ErrContextCanceled},
		{"boom", ErrOCRFailed},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.ErrorIs(t, p.handleProcessingError("op", errors.New(tt.msg)), tt.want)
		})
	}
}
