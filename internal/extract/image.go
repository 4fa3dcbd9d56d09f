package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const tesseractBin = "tesseract"

// ImageExtractor runs OCR through the tesseract CLI.
type ImageExtractor struct {
	runner          CommandRunner
	suppressFailure bool
	logger          *zap.Logger
}

// NewImageExtractor creates an OCR strategy. With suppressFailure set, an
// OCR error is logged and reported as empty text.
func NewImageExtractor(runner CommandRunner, suppressFailure bool, logger *zap.Logger) *ImageExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageExtractor{runner: runner, suppressFailure: suppressFailure, logger: logger}
}

func (e *ImageExtractor) Extract(ctx context.Context, src Source) (*Result, error) {
	out, err := e.runner.Run(ctx, tesseractBin, src.Path, "stdout")
	if err != nil {
		if e.suppressFailure {
			e.logger.Warn("image failed to parse",
				zap.String("file_name", src.FileName),
				zap.Error(err),
			)
			return &Result{}, nil
		}
		return nil, fmt.Errorf("ocr %s: %w", src.FileName, err)
	}
	return &Result{Text: decodeUTF8(out)}, nil
}
