package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the embedded text layer of a PDF. Scanned PDFs without one yield "".
type PDFExtractor struct{}

func (PDFExtractor) ExtractText(ctx context.Context, img Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(img.Content) == 0 {
		return "", errors.New("pdf: empty content")
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(img.Content), int64(len(img.Content)))
	if err != nil {
		return "", fmt.Errorf("pdf: open: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf: read text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("pdf: copy text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
