package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestEmbedHandler_Embed(t *testing.T) {
	mockSvc := new(MockEmbeddingService)
	handler := NewEmbedHandler(mockSvc)
	mockSvc.On("EmbedText", mock.Anything, "hello").Return([]float32{0.5, -0.25}, nil)

	w := httptest.NewRecorder()
	handler.Embed(w, requestWithOwner(http.MethodPost, "/embed", []byte(`{"text":"hello"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"embedding":[0.5,-0.25]}}`, w.Body.String())
}

func TestEmbedHandler_Embed_Errors(t *testing.T) {
	mockSvc := new(MockEmbeddingService)
	handler := NewEmbedHandler(mockSvc)
	mockSvc.On("EmbedText", mock.Anything, "").Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "text is required"))
	mockSvc.On("EmbedText", mock.Anything, "x").Return(nil, domain.ErrEmbeddingModelNotReady)

	w := httptest.NewRecorder()
	handler.Embed(w, requestWithOwner(http.MethodPost, "/embed", []byte(`{"text":""}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	handler.Embed(w, requestWithOwner(http.MethodPost, "/embed", []byte(`{"text":"x"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	handler.Embed(w, requestWithOwner(http.MethodPost, "/embed", []byte(`nope`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
