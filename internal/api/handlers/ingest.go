package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/api/middleware"
	"github.com/cloo-solutions/docrag/internal/service"
)

type IngestService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestOutput, error)
	Reingest(ctx context.Context, ownerID *int64, documentID int64, file service.Upload) (*service.IngestOutput, error)
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Ingest stores a new document from the multipart "file" field. The optional
// "title" field overrides the file name as the document title.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	defer cleanupForm(r)

	file, ok := singleUpload(w, r)
	if !ok {
		return
	}

	output, err := h.svc.Ingest(r.Context(), service.IngestInput{
		OwnerID: ownerID,
		Title:   r.FormValue("title"),
		File:    file,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, output)
}

func (h *IngestHandler) Reingest(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	defer cleanupForm(r)

	id, ok := documentID(w, r)
	if !ok {
		return
	}
	file, ok := singleUpload(w, r)
	if !ok {
		return
	}

	output, err := h.svc.Reingest(r.Context(), ownerID, id, file)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, output)
}

func singleUpload(w http.ResponseWriter, r *http.Request) (service.Upload, bool) {
	uploads, err := formUploads(r, "file")
	if err != nil {
		writeUploadError(w, err)
		return service.Upload{}, false
	}
	if len(uploads) != 1 {
		api.Error(w, http.StatusBadRequest, "exactly one file is required")
		return service.Upload{}, false
	}
	return uploads[0], true
}
