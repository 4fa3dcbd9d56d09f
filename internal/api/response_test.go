package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, map[string]int64{"document_id": 12})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"document_id":12}}`, rec.Body.String())
}

func TestSuccess_NilData(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, nil)

	assert.JSONEq(t, `{"data":null}`, rec.Body.String())
}

func TestError_OmitsCode(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusUnauthorized, "missing authorization header")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing authorization header"}`, rec.Body.String())
}

func TestDomainErrorToHTTP(t *testing.T) {
	cases := map[int][]error{
		http.StatusOK:                    {nil},
		http.StatusBadRequest:            {domain.ErrInvalidLimit, domain.ErrEmptyQuery},
		http.StatusNotFound:              {domain.ErrDocumentNotFound, fmt.Errorf("get: %w", domain.ErrDocumentNotFound)},
		http.StatusConflict:              {domain.ErrAPIKeyAlreadyExists},
		http.StatusUnauthorized:          {domain.ErrInvalidAPIKey},
		http.StatusForbidden:             {domain.NewDomainError(domain.ErrCodeForbidden, "nope")},
		http.StatusUnsupportedMediaType:  {domain.ErrUnsupportedFormat},
		http.StatusRequestEntityTooLarge: {domain.WithCause(domain.ErrPayloadTooLarge, errors.New("30MB"))},
		http.StatusUnprocessableEntity:   {domain.ErrDurationExceeded, domain.ErrExtractionFailed},
		http.StatusBadGateway:            {&domain.TranscriptionError{StatusCode: 429, Body: "rate limited"}},
		http.StatusServiceUnavailable:    {domain.ErrEmbeddingModelNotReady},
		http.StatusInternalServerError: {
			domain.ErrDimensionMismatch,
			domain.NewDomainError("SOMETHING_NEW", "x"),
			errors.New("plain"),
		},
	}

	for status, errs := range cases {
		for _, err := range errs {
			assert.Equal(t, status, DomainErrorToHTTP(err), "%v", err)
		}
	}
}

func TestHandleError(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, fmt.Errorf("rename: %w", domain.ErrDocumentNotFound))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"error":%q,"code":"NOT_FOUND"}`,
		"rename: "+domain.ErrDocumentNotFound.Error()), rec.Body.String())
}
