package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/api/middleware"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Create(ctx context.Context, ownerID *int64, title string) (*domain.Document, error)
	Get(ctx context.Context, ownerID *int64, id int64) (*domain.Document, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	UpdateTitle(ctx context.Context, ownerID *int64, id int64, title string) (*domain.Document, error)
	Delete(ctx context.Context, ownerID *int64, id int64) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentRequest struct {
	Title string `json:"title"`
}

type DocumentResponse struct {
	ID        int64  `json:"id"`
	OwnerID   *int64 `json:"owner_id,omitempty"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.Create(r.Context(), ownerID, req.Title)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Get(r.Context(), ownerID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListDocumentsInput{
		OwnerID: ownerID,
		Cursor:  r.URL.Query().Get("cursor"),
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(output.Items))
	for i, d := range output.Items {
		items[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.svc.UpdateTitle(r.Context(), ownerID, id, req.Title)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), ownerID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// documentID parses the {id} route parameter, writing a 400 when it is not a
// positive integer.
func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}
