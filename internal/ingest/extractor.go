package ingest

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return "", fmt.Errorf("docconv convert (%s): %w", contentType, err)
	}
	return res.Body, nil
}

// MimeTypeForPath guesses the docconv mime type from a file path.
func MimeTypeForPath(path string) string {
	return docconv.MimeTypeByExtension(path)
}
