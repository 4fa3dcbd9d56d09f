package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextExtractor decodes plain text and Markdown as UTF-8, dropping
// undecodable bytes.
type TextExtractor struct{}

func (e *TextExtractor) Extract(_ context.Context, src Source) (*Result, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src.FileName, err)
	}
	return &Result{Text: decodeUTF8(data)}, nil
}

func decodeUTF8(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}
