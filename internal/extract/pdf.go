package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the embedded text layer. Pages without one (scanned
// documents) contribute no text and are not an error.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(_ context.Context, src Source) (res *Result, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("reading pdf %s: %v", src.FileName, r)
		}
	}()

	f, reader, err := pdf.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", src.FileName, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("reading pdf text %s: %w", src.FileName, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("reading pdf text %s: %w", src.FileName, err)
	}

	return &Result{Text: decodeUTF8(buf.Bytes())}, nil
}
