package domain

import (
	"errors"
	"fmt"
)

// DomainError is an error with a stable machine-readable code. The HTTP
// layer maps codes to statuses and returns them to clients as is.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is matches on code and message, so errors.Is finds a sentinel even after
// WithCause copied it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code && e.Message == t.Message
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// WithCause returns a copy of a sentinel error with err attached.
func WithCause(sentinel *DomainError, err error) *DomainError {
	return NewDomainErrorWithCause(sentinel.Code, sentinel.Message, err)
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TranscriptionError
	if errors.As(err, &te) {
		return ErrCodeTranscriptionFailed
	}
	return ""
}

// Codes shared with the rest of the platform's services.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Codes raised by the parse, embed and retrieval pipeline.
const (
	ErrCodeUnsupportedFormat      = "UNSUPPORTED_FORMAT"
	ErrCodeExtractionFailed       = "EXTRACTION_FAILED"
	ErrCodePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	ErrCodeDurationExceeded       = "DURATION_EXCEEDED"
	ErrCodeTranscriptionFailed    = "TRANSCRIPTION_FAILED"
	ErrCodeEmbeddingModelNotReady = "EMBEDDING_MODEL_NOT_READY"
	ErrCodeDimensionMismatch      = "DIMENSION_MISMATCH"
)

var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidTitle         = NewDomainError(ErrCodeValidation, "title must be between 1 and 255 characters")
	ErrInvalidOwnerID       = NewDomainError(ErrCodeValidation, "owner id must be positive")
	ErrMismatchedChunkLists = NewDomainError(ErrCodeValidation, "chunk texts and embeddings must have the same length")
	ErrEmptyChunkText       = NewDomainError(ErrCodeValidation, "chunk text must not be empty")
	ErrInvalidLimit         = NewDomainError(ErrCodeValidation, "result count must be between 1 and 1000")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query must not be empty")
	ErrInvalidCursor        = NewDomainError(ErrCodeValidation, "invalid cursor")
)

var (
	ErrDocumentNotFound    = NewDomainError(ErrCodeNotFound, "document not found")
	ErrAPIKeyNotFound      = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
	ErrAPIKeyRevoked       = NewDomainError(ErrCodeUnauthorized, "api key revoked")
	ErrInvalidAPIKey       = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Raised before or during text extraction.
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "unsupported content type")
	ErrExtractionFailed  = NewDomainError(ErrCodeExtractionFailed, "text extraction failed")
	ErrPayloadTooLarge   = NewDomainError(ErrCodePayloadTooLarge, "payload exceeds the configured size limit")
	ErrDurationExceeded  = NewDomainError(ErrCodeDurationExceeded, "audio exceeds the configured duration limit")
)

var (
	ErrEmbeddingModelNotReady = NewDomainError(ErrCodeEmbeddingModelNotReady, "embedding model is not initialized")
	ErrDimensionMismatch      = NewDomainError(ErrCodeDimensionMismatch, "embedding dimension does not match the stored schema")
)

// ErrTranscriptionFailed is the sentinel matched by every TranscriptionError.
var ErrTranscriptionFailed = NewDomainError(ErrCodeTranscriptionFailed, "transcription failed")

// TranscriptionError reports a non-success answer from the speech-to-text
// collaborator. Status and body are kept verbatim.
type TranscriptionError struct {
	StatusCode int
	Body       string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *TranscriptionError) Unwrap() error {
	return ErrTranscriptionFailed
}
