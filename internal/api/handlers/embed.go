package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
)

type EmbeddingService interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type EmbedHandler struct {
	svc EmbeddingService
}

func NewEmbedHandler(svc EmbeddingService) *EmbedHandler {
	return &EmbedHandler{svc: svc}
}

type EmbedRequest struct {
	Text string `json:"text"`
}

type EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (h *EmbedHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vec, err := h.svc.EmbedText(r.Context(), req.Text)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, EmbedResponse{Embedding: vec})
}
