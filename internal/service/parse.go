package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/cloo-solutions/docrag/internal/logging"
	"github.com/cloo-solutions/docrag/internal/metrics"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"go.uber.org/zap"
)

// StagingFilePrefix marks temporary upload copies so the janitor can find
// the ones a killed process left behind.
const StagingFilePrefix = "docrag-upload-"

const defaultExtractTimeout = 2 * time.Minute

// TextExtractor is satisfied by *extract.Registry.
type TextExtractor interface {
	Extract(ctx context.Context, src extract.Source) (*extract.Result, error)
	Supports(contentType string) bool
}

// Upload is one file handed to the parser. Open may be called more than
// once; each call returns a fresh reader over the same bytes.
type Upload struct {
	FileName    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// BytesUpload wraps an in-memory file.
func BytesUpload(fileName, contentType string, data []byte) Upload {
	return Upload{
		FileName:    fileName,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type ParseConfig struct {
	StagingDir     string
	ExtractTimeout time.Duration
}

// ParseService stages uploads on disk and runs them through the extractor
// registry, one file at a time.
type ParseService struct {
	extractor TextExtractor
	cfg       ParseConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewParseService(extractor TextExtractor, cfg ParseConfig, m *metrics.Metrics, logger *zap.Logger) *ParseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = os.TempDir()
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = defaultExtractTimeout
	}
	return &ParseService{
		extractor: extractor,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

// ParseFile parses a single upload. Extraction errors become a Failed
// result, except audio size and duration violations, which are returned as
// errors so the caller can reject the request outright.
func (s *ParseService) ParseFile(ctx context.Context, f Upload) (domain.ParseResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ParseService.ParseFile", telemetry.SpanAttributes{
		ContentType: f.ContentType,
		Operation:   "parse",
	})
	defer span.End()

	res, err := s.Extract(ctx, f)
	if err != nil {
		if isPrecheckError(err) {
			span.SetError(err)
			return domain.ParseResult{}, err
		}
		return domain.ParseFailure(f.FileName, err), nil
	}
	return domain.ParseSuccess(f.FileName, res.Text), nil
}

// ParseBatch returns a lazy sequence with one result per upload, in order,
// followed by a single Finished record. A failing file yields a Failed
// record and processing moves on. The sequence can be ranged over once;
// later ranges yield nothing. Cancelling ctx ends it early without the
// Finished record.
func (s *ParseService) ParseBatch(ctx context.Context, files []Upload) iter.Seq[domain.ParseResult] {
	var consumed atomic.Bool
	return func(yield func(domain.ParseResult) bool) {
		if consumed.Swap(true) {
			return
		}
		for i, f := range files {
			if ctx.Err() != nil {
				s.logger.Info("batch parse cancelled",
					zap.Int("processed", i),
					zap.Int("total", len(files)),
				)
				return
			}

			var result domain.ParseResult
			res, err := s.Extract(ctx, f)
			if err != nil {
				result = domain.ParseFailure(f.FileName, err)
			} else {
				result = domain.ParseSuccess(f.FileName, res.Text)
			}
			if !yield(result) {
				return
			}
		}
		yield(domain.FinishedSentinel())
	}
}

// Extract stages f, runs the matching strategy under the per-file timeout
// and removes the staged copy before returning.
func (s *ParseService) Extract(ctx context.Context, f Upload) (*extract.Result, error) {
	start := time.Now()
	res, err := s.extract(ctx, f)

	status := string(domain.ParseStatusSuccess)
	if err != nil {
		status = string(domain.ParseStatusFailed)
		s.logger.Warn("file failed to parse", append(logging.ContextFields(ctx),
			zap.String("file_name", f.FileName),
			zap.String("content_type", f.ContentType),
			zap.Error(err),
		)...)
	}
	s.metrics.ObserveParse(status, s.contentTypeLabel(f.ContentType), time.Since(start))
	return res, err
}

func (s *ParseService) contentTypeLabel(contentType string) string {
	if !s.extractor.Supports(contentType) {
		return metrics.UnsupportedContentType
	}
	return extract.NormalizeContentType(contentType)
}

func (s *ParseService) extract(ctx context.Context, f Upload) (*extract.Result, error) {
	if f.Open == nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "upload has no content")
	}

	path, size, err := s.stage(f)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove staging file", zap.String("path", path), zap.Error(rmErr))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	res, err := s.extractor.Extract(ctx, extract.Source{
		FileName:    f.FileName,
		ContentType: f.ContentType,
		Path:        path,
		Size:        size,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.WithCause(domain.ErrExtractionFailed,
				fmt.Errorf("extraction exceeded %s", s.cfg.ExtractTimeout))
		}
		return nil, err
	}
	return res, nil
}

// stage copies the upload into a temporary file and returns its path and
// size. The file keeps the upload's extension so external tools can sniff it.
func (s *ParseService) stage(f Upload) (string, int64, error) {
	src, err := f.Open()
	if err != nil {
		return "", 0, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.cfg.StagingDir, StagingFilePrefix+"*"+filepath.Ext(f.FileName))
	if err != nil {
		return "", 0, fmt.Errorf("create staging file: %w", err)
	}

	size, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write staging file: %w", errors.Join(copyErr, closeErr))
	}
	return tmp.Name(), size, nil
}

func isPrecheckError(err error) bool {
	return errors.Is(err, domain.ErrPayloadTooLarge) || errors.Is(err, domain.ErrDurationExceeded)
}
