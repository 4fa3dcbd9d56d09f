// Package api holds the JSON envelope shared by every handler. Successful
// bodies are {"data": ...}; failures are {"error": ..., "code": ...}.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/domain"
)

type dataBody struct {
	Data any `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusByCode lists the domain codes that are not a server fault.
var statusByCode = map[string]int{
	domain.ErrCodeValidation:             http.StatusBadRequest,
	domain.ErrCodeInvalidOperation:       http.StatusBadRequest,
	domain.ErrCodeNotFound:               http.StatusNotFound,
	domain.ErrCodeAlreadyExists:          http.StatusConflict,
	domain.ErrCodeUnauthorized:           http.StatusUnauthorized,
	domain.ErrCodeForbidden:              http.StatusForbidden,
	domain.ErrCodeUnsupportedFormat:      http.StatusUnsupportedMediaType,
	domain.ErrCodePayloadTooLarge:        http.StatusRequestEntityTooLarge,
	domain.ErrCodeDurationExceeded:       http.StatusUnprocessableEntity,
	domain.ErrCodeExtractionFailed:       http.StatusUnprocessableEntity,
	domain.ErrCodeTranscriptionFailed:    http.StatusBadGateway,
	domain.ErrCodeEmbeddingModelNotReady: http.StatusServiceUnavailable,
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out; an encode failure here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(body)
}

// Success writes data inside the success envelope.
func Success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataBody{Data: data})
}

// Error writes a bare error message with no code.
func Error(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// DomainErrorToHTTP returns the status for err. Errors without a known code,
// including DIMENSION_MISMATCH, are 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[domain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes err with its mapped status and domain code.
func HandleError(w http.ResponseWriter, err error) {
	writeJSON(w, DomainErrorToHTTP(err), errorBody{Error: err.Error(), Code: domain.CodeOf(err)})
}
