package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"facturas/internal/logger"
)

// DocumentAIConfig selects the Document AI processor.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
}

// DocumentAIConfigFromEnv reads the processor settings from the environment.
func DocumentAIConfigFromEnv() DocumentAIConfig {
	return DocumentAIConfig{
		ProjectID:        getEnvVar("GOOGLE_CLOUD_PROJECT", "GOOGLE_PROJECT_ID"),
		Location:         getEnvVar("GOOGLE_CLOUD_LOCATION", "GOOGLE_LOCATION"),
		ProcessorID:      getEnvVar("DOCUMENT_AI_PROCESSOR_ID", "GOOGLE_PROCESSOR_ID"),
		ProcessorVersion: getEnvVar("DOCUMENT_AI_PROCESSOR_VERSION"),
		Timeout:          60 * time.Second,
	}
}

// ProcessorName returns the fully qualified processor resource name.
func (c DocumentAIConfig) ProcessorName() string {
	if c.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			c.ProjectID, c.Location, c.ProcessorID, c.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAISource returns the full text Document AI reads from a document. Entities
// detected by the processor are ignored.
type DocumentAISource struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAISource creates a Document AI source with credentials from environment.
func NewDocumentAISource(ctx context.Context, config DocumentAIConfig) (*DocumentAISource, error) {
	const op = "NewDocumentAISource"

	if config.ProjectID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption

	// Regional endpoint outside the default multi-region
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, WrapOCRError(op, ErrMissingCredentials, fmt.Sprintf("failed to create Document AI client for location %s: %v", config.Location, err))
	}

	return &DocumentAISource{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// ExtractText sends the document to the processor and returns its full text.
func (p *DocumentAISource) ExtractText(ctx context.Context, r io.Reader) (string, error) {
	const op = "DocumentAISource.ExtractText"

	data, err := readDocument(op, r)
	if err != nil {
		return "", err
	}

	mimeType := "application/pdf"
	if !isPDF(data) {
		mimeType = http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "image/") {
			return "", WrapOCRError(op, ErrUnsupportedSource, fmt.Sprintf("content type %s", mimeType))
		}
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: p.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return "", p.handleProcessingError(op, err)
	}

	text, err := documentText(resp.GetDocument())
	if err != nil {
		return "", WrapOCRError(op, err, "")
	}
	p.log.Debug().
		Str("processor", p.config.ProcessorID).
		Int("pages", len(resp.GetDocument().GetPages())).
		Int("chars", len(text)).
		Msg("Document text extracted")
	return text, nil
}

func documentText(doc *documentaipb.Document) (string, error) {
	if doc == nil || strings.TrimSpace(doc.GetText()) == "" {
		return "", ErrEmptyDocument
	}
	return doc.GetText(), nil
}

// handleProcessingError maps Document AI failures onto the package errors.
func (p *DocumentAISource) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED") || strings.Contains(errStr, "PermissionDenied"):
		return WrapOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "ResourceExhausted"):
		return WrapOCRError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND") || strings.Contains(errStr, "NotFound"):
		return WrapOCRError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT") || strings.Contains(errStr, "InvalidArgument"):
		return WrapOCRError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return WrapOCRError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return WrapOCRError(op, ErrContextCanceled, "processing was canceled")
	default:
		return WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (p *DocumentAISource) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
