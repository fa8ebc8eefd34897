// Package ocr turns uploaded images and documents into plain text.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const MimePDF = "application/pdf"

// ErrUnsupportedContent is returned when no extractor handles the content type.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Image is the input to text extraction. Content takes precedence over URI.
type Image struct {
	Content     []byte
	ContentType string
	URI         string
}

// Extractor detects text in an image. An image without text yields "" and no error.
type Extractor interface {
	ExtractText(ctx context.Context, img Image) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, img Image) (string, error)

func (f ExtractorFunc) ExtractText(ctx context.Context, img Image) (string, error) {
	return f(ctx, img)
}

// Router sends images to the OCR service and PDFs to the embedded text-layer reader.
type Router struct {
	Images Extractor
	PDF    Extractor
}

func (r Router) ExtractText(ctx context.Context, img Image) (string, error) {
	ct := NormalizeContentType(img.ContentType)
	switch {
	case ct == MimePDF && r.PDF != nil:
		return r.PDF.ExtractText(ctx, img)
	case strings.HasPrefix(ct, "image/") && r.Images != nil:
		return r.Images.ExtractText(ctx, img)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
	}
}

// NormalizeContentType lower-cases a media type and drops parameters.
func NormalizeContentType(contentType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
}
