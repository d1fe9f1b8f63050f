package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"facturas/internal/logger"
)

// VisionSource runs Google Cloud Vision document text detection on scanned PDFs and images.
type VisionSource struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewVisionSource creates a Vision source with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewVisionSource(ctx context.Context) (*VisionSource, error) {
	const op = "NewVisionSource"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Application default credentials
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewVisionSourceWithClient(client), nil
}

// NewVisionSourceWithClient creates a Vision source with an explicit client.
func NewVisionSourceWithClient(client *vision.ImageAnnotatorClient) *VisionSource {
	return &VisionSource{
		client: client,
		log:    logger.WithComponent("vision"),
	}
}

// ExtractText detects the text of a PDF (up to MaxPagesSync pages) or a single image.
func (g *VisionSource) ExtractText(ctx context.Context, r io.Reader) (string, error) {
	const op = "VisionSource.ExtractText"

	data, err := readDocument(op, r)
	if err != nil {
		return "", err
	}

	features := []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}}

	if isPDF(data) {
		resp, err := g.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{
					Content:  data,
					MimeType: "application/pdf",
				},
				Features: features,
			}},
		})
		if err != nil {
			return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
		}
		if len(resp.Responses) == 0 {
			return "", WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
		}
		text, err := fileText(resp.Responses[0])
		if err != nil {
			return "", WrapOCRError(op, err, "failed to process Vision API response")
		}
		g.log.Debug().Int("pages", len(resp.Responses[0].Responses)).Int("chars", len(text)).Msg("PDF text detected")
		return text, nil
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", WrapOCRError(op, ErrUnsupportedSource, fmt.Sprintf("content type %s", mimeType))
	}

	resp, err := g.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: data},
			Features: features,
		}},
	})
	if err != nil {
		return "", WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return "", WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}
	text, err := pagesText([]*visionpb.AnnotateImageResponse{resp.Responses[0]})
	if err != nil {
		return "", WrapOCRError(op, err, "failed to process Vision API response")
	}
	g.log.Debug().Str("mime_type", mimeType).Int("chars", len(text)).Msg("Image text detected")
	return text, nil
}

// fileText joins the page texts of one annotated file.
func fileText(fileResp *visionpb.AnnotateFileResponse) (string, error) {
	if fileResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrOCRFailed, fileResp.Error.Message)
	}
	if len(fileResp.Responses) > MaxPagesSync {
		return "", fmt.Errorf("%w: document has %d pages", ErrTooManyPages, len(fileResp.Responses))
	}
	return pagesText(fileResp.Responses)
}

// pagesText joins the full text annotations of pages in reading order, one blank line
// between pages.
func pagesText(pages []*visionpb.AnnotateImageResponse) (string, error) {
	var allText strings.Builder
	for pageIdx, page := range pages {
		if page.Error != nil {
			return "", fmt.Errorf("%w: page %d: %s", ErrOCRFailed, pageIdx+1, page.Error.Message)
		}
		if page.FullTextAnnotation == nil {
			continue
		}
		if allText.Len() > 0 {
			allText.WriteString("\n\n")
		}
		allText.WriteString(page.FullTextAnnotation.Text)
	}

	if strings.TrimSpace(allText.String()) == "" {
		return "", ErrEmptyDocument
	}
	return allText.String(), nil
}

// Close closes the underlying Vision client.
func (g *VisionSource) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
