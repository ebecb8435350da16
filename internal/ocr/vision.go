package ocr

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"invoicedesk/internal/logger"
)

// DefaultLanguageHints bias recognition towards Vietnamese invoices.
var DefaultLanguageHints = []string{"vi", "en"}

// VisionService implements Service using Google Cloud Vision document text
// detection on a single image.
type VisionService struct {
	client        *vision.ImageAnnotatorClient
	languageHints []string
	log           zerolog.Logger
}

// NewVisionService creates a Vision client with credentials from environment.
// It expects either GOOGLE_CREDENTIALS JSON or a GOOGLE_APPLICATION_CREDENTIALS path.
func NewVisionService(ctx context.Context) (*VisionService, error) {
	const op = "NewVisionService"

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
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewVisionServiceWithClient(client), nil
}

// NewVisionServiceWithClient wraps an existing client.
func NewVisionServiceWithClient(client *vision.ImageAnnotatorClient) *VisionService {
	return &VisionService{
		client:        client,
		languageHints: DefaultLanguageHints,
		log:           logger.WithComponent("ocr-vision"),
	}
}

// ExtractText prepares image and runs DOCUMENT_TEXT_DETECTION on it.
func (v *VisionService) ExtractText(ctx context.Context, image []byte) (*Result, error) {
	const op = "ExtractText"
	startTime := time.Now()

	prepared, err := PrepareImage(image)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: prepared},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: v.languageHints},
			},
		},
	}

	v.log.Debug().
		Int("original_bytes", len(image)).
		Int("prepared_bytes", len(prepared)).
		Msg("Sending image to Vision API")

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, WrapOCRError(op, ErrContextCanceled, ctx.Err().Error())
		}
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	result, err := parseAnnotation(resp.Responses[0])
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	v.log.Info().
		Int("chars", len(result.Text)).
		Float32("confidence", result.Confidence).
		Strs("languages", result.LanguageCodes).
		Dur("duration", result.ProcessingDuration).
		Msg("Text extracted")

	return result, nil
}

// Close closes the underlying Vision client.
func (v *VisionService) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func parseAnnotation(resp *visionpb.AnnotateImageResponse) (*Result, error) {
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrOCRFailed, resp.Error.Message)
	}

	annotation := resp.FullTextAnnotation
	if annotation == nil || strings.TrimSpace(annotation.Text) == "" {
		return nil, ErrEmptyDocument
	}

	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)

	for _, page := range annotation.Pages {
		if page.Confidence > 0 {
			confidenceSum += page.Confidence
			confidenceCount++
		}
		if page.Property == nil {
			continue
		}
		for _, lang := range page.Property.DetectedLanguages {
			if lang.LanguageCode != "" {
				languageSet[lang.LanguageCode] = true
			}
		}
	}

	var avgConfidence float32
	if confidenceCount > 0 {
		avgConfidence = confidenceSum / float32(confidenceCount)
	}

	languages := make([]string, 0, len(languageSet))
	for lang := range languageSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return &Result{
		Text:          annotation.Text,
		Confidence:    avgConfidence,
		LanguageCodes: languages,
	}, nil
}
