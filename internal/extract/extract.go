// Package extract turns uploaded files into plain text. A Registry maps a
// normalized content type to exactly one Extractor strategy.
package extract

import (
	"context"
	"mime"
	"strings"
)

// Content types with a registered strategy.
const (
	ContentTypePlain    = "text/plain"
	ContentTypeMarkdown = "text/markdown"
	ContentTypeHTML     = "text/html"
	ContentTypePDF      = "application/pdf"
	ContentTypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePNG      = "image/png"
	ContentTypeJPEG     = "image/jpeg"
	ContentTypeWEBP     = "image/webp"
	ContentTypeFLAC     = "audio/flac"
	ContentTypeMPEG     = "audio/mpeg"
	ContentTypeMP3      = "audio/mp3"
	ContentTypeM4A      = "audio/m4a"
	ContentTypeXM4A     = "audio/x-m4a"
	ContentTypeOGG      = "audio/ogg"
	ContentTypeWAV      = "audio/wav"
	ContentTypeXWAV     = "audio/x-wav"
	ContentTypeWEBM     = "audio/webm"
)

// Source is one staged upload. Path points at a temporary copy of the bytes
// that stays valid for the duration of the Extract call.
type Source struct {
	FileName    string
	ContentType string
	Path        string
	Size        int64
}

// Result is the text extracted from a Source plus format-specific extras.
type Result struct {
	Text string

	// HTML only: img src attributes in document order.
	Images []string

	// Audio only.
	DurationMin float64
	Language    string
}

// Extractor converts one staged file into text.
type Extractor interface {
	Extract(ctx context.Context, src Source) (*Result, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, src Source) (*Result, error)

func (f ExtractorFunc) Extract(ctx context.Context, src Source) (*Result, error) {
	return f(ctx, src)
}

// NormalizeContentType lowercases a declared content type and drops any
// parameters, so "Text/Plain; charset=utf-8" becomes "text/plain".
func NormalizeContentType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
