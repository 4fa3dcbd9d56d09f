package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"go.uber.org/zap"
)

// Registry dispatches a Source to the strategy registered for its content
// type. Matching is exact after normalization; there is no fallback.
type Registry struct {
	strategies map[string]Extractor
	logger     *zap.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		strategies: make(map[string]Extractor),
		logger:     logger,
	}
}

// Register binds e to each content type, replacing earlier bindings.
func (r *Registry) Register(e Extractor, contentTypes ...string) {
	for _, ct := range contentTypes {
		r.strategies[NormalizeContentType(ct)] = e
	}
}

// Supports reports whether a strategy exists for contentType.
func (r *Registry) Supports(contentType string) bool {
	_, ok := r.strategies[NormalizeContentType(contentType)]
	return ok
}

// ContentTypes lists the registered content types in sorted order.
func (r *Registry) ContentTypes() []string {
	types := make([]string, 0, len(r.strategies))
	for ct := range r.strategies {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}

// Extract runs the strategy registered for src.ContentType.
//
// Unknown content types fail with ErrUnsupportedFormat. Strategy errors that
// already carry a domain code (size, duration and transcription failures)
// are returned unchanged; any other strategy error is wrapped as
// ErrExtractionFailed.
func (r *Registry) Extract(ctx context.Context, src Source) (*Result, error) {
	contentType := NormalizeContentType(src.ContentType)
	strategy, ok := r.strategies[contentType]
	if !ok {
		return nil, domain.WithCause(domain.ErrUnsupportedFormat, fmt.Errorf("unsupported file type: %q", src.ContentType))
	}

	src.ContentType = contentType
	start := time.Now()
	res, err := strategy.Extract(ctx, src)
	if err != nil {
		r.logger.Warn("extraction failed",
			zap.String("file_name", src.FileName),
			zap.String("content_type", contentType),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		var de *domain.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.WithCause(domain.ErrExtractionFailed, err)
	}
	if res == nil {
		res = &Result{}
	}

	r.logger.Debug("extracted text",
		zap.String("file_name", src.FileName),
		zap.String("content_type", contentType),
		zap.Int("text_len", len(res.Text)),
		zap.Int("images", len(res.Images)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Options configures the default strategy set.
type Options struct {
	Runner           CommandRunner
	Transcriber      Transcriber
	MaxAudioBytes    int64
	MaxAudioDuration time.Duration
	// When true an OCR failure yields empty text instead of an error.
	SuppressOCRFailure bool
}

// NewDefaultRegistry wires every built-in strategy. Audio is registered only
// when a Transcriber is configured.
func NewDefaultRegistry(opts Options, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	r := NewRegistry(logger)
	r.Register(&TextExtractor{}, ContentTypePlain, ContentTypeMarkdown)
	r.Register(&HTMLExtractor{}, ContentTypeHTML)
	r.Register(&PDFExtractor{}, ContentTypePDF)
	r.Register(&DOCXExtractor{}, ContentTypeDOCX)
	r.Register(NewImageExtractor(runner, opts.SuppressOCRFailure, logger), ContentTypePNG, ContentTypeJPEG, ContentTypeWEBP)

	if opts.Transcriber != nil {
		audio := NewAudioExtractor(AudioConfig{
			MaxBytes:    opts.MaxAudioBytes,
			MaxDuration: opts.MaxAudioDuration,
		}, NewFFProbe(runner), opts.Transcriber)
		r.Register(audio, AudioContentTypes()...)
	} else {
		logger.Info("audio extraction disabled: no transcription credentials configured")
	}

	return r
}
