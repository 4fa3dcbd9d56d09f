package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/api/middleware"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
)

type RetrievalService interface {
	SearchChunks(ctx context.Context, input service.SearchInput) ([]domain.SimilarityHit, error)
	RankDocuments(ctx context.Context, input service.RankInput) ([]domain.DocumentRank, error)
}

type QueryHandler struct {
	svc RetrievalService
}

func NewQueryHandler(svc RetrievalService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Query  string  `json:"query"`
	DocIDs []int64 `json:"doc_ids,omitempty"`
	TopK   int     `json:"top_k,omitempty"`
}

type RankRequest struct {
	Query            string  `json:"query"`
	DocIDs           []int64 `json:"doc_ids,omitempty"`
	ChunksToConsider int     `json:"chunks_to_consider,omitempty"`
	TopKDocs         int     `json:"top_k_docs,omitempty"`
}

// Query returns the chunks nearest to the query text, closest first.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hits, err := h.svc.SearchChunks(r.Context(), service.SearchInput{
		OwnerID:     ownerID,
		Query:       req.Query,
		DocumentIDs: req.DocIDs,
		TopK:        req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if hits == nil {
		hits = []domain.SimilarityHit{}
	}

	api.Success(w, http.StatusOK, hits)
}

// RankDocuments groups the nearest chunks by document and ranks documents by
// mean similarity.
func (h *QueryHandler) RankDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ranks, err := h.svc.RankDocuments(r.Context(), service.RankInput{
		OwnerID:          ownerID,
		Query:            req.Query,
		DocumentIDs:      req.DocIDs,
		ChunksToConsider: req.ChunksToConsider,
		TopKDocs:         req.TopKDocs,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if ranks == nil {
		ranks = []domain.DocumentRank{}
	}

	api.Success(w, http.StatusOK, ranks)
}
