// Package vision extracts document text through the Google Cloud Vision API.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"photo-speech/internal/ocr"
	"photo-speech/internal/shared/resilience"
)

// noRetry disables the client library's own retries; the executor owns retry policy.
var noRetry = gax.WithRetry(func() gax.Retryer { return nil })

// Annotator is the part of the Vision image annotator used for text detection.
type Annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Client implements ocr.Extractor with DOCUMENT_TEXT_DETECTION.
type Client struct {
	annotator Annotator
	timeout   time.Duration
	exec      *resilience.Executor
	close     func() error
}

// New wraps an annotator. A zero timeout leaves call deadlines to ctx.
func New(annotator Annotator, timeout time.Duration, exec *resilience.Executor) *Client {
	return &Client{annotator: annotator, timeout: timeout, exec: exec}
}

// Dial opens an ImageAnnotatorClient with opts. Close releases its connection.
func Dial(ctx context.Context, timeout time.Duration, exec *resilience.Executor, opts ...option.ClientOption) (*Client, error) {
	annotator, err := visionapi.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision: new client: %w", err)
	}
	c := New(annotator, timeout, exec)
	c.close = annotator.Close
	return c, nil
}

// Close releases the underlying connection when the client was opened by Dial.
func (c *Client) Close() error {
	if c == nil || c.close == nil {
		return nil
	}
	return c.close()
}

// ExtractText returns the full document text, or "" when the image has none.
func (c *Client) ExtractText(ctx context.Context, img ocr.Image) (string, error) {
	req, err := buildRequest(img)
	if err != nil {
		return "", err
	}

	var text string
	err = c.exec.Execute(ctx, "vision.annotate", func(ctx context.Context) error {
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
		resp, callErr := c.annotator.BatchAnnotateImages(ctx, req, noRetry)
		if callErr != nil {
			return fmt.Errorf("vision: annotate: %w", callErr)
		}
		text, callErr = documentText(resp)
		return callErr
	}, resilience.ClassifyGRPC)
	if err != nil {
		return "", err
	}
	return text, nil
}

// buildRequest sends inline bytes when present, otherwise the stored object's URI.
func buildRequest(img ocr.Image) (*visionpb.BatchAnnotateImagesRequest, error) {
	image := &visionpb.Image{}
	switch {
	case len(img.Content) > 0:
		image.Content = img.Content
	case strings.TrimSpace(img.URI) != "":
		image.Source = &visionpb.ImageSource{ImageUri: img.URI}
	default:
		return nil, errors.New("vision: image has neither content nor uri")
	}
	return &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    image,
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	}, nil
}

func documentText(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	first := resp.GetResponses()[0]
	if e := first.GetError(); e != nil && e.GetMessage() != "" {
		return "", fmt.Errorf("vision: annotate failed (code %d): %s", e.GetCode(), e.GetMessage())
	}
	return first.GetFullTextAnnotation().GetText(), nil
}

var (
	_ ocr.Extractor = (*Client)(nil)
	_ Annotator     = (*visionapi.ImageAnnotatorClient)(nil)
)
