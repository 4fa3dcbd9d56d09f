package handlers

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
	"go.uber.org/zap"
)

type ParseService interface {
	ParseFile(ctx context.Context, f service.Upload) (domain.ParseResult, error)
	ParseBatch(ctx context.Context, files []service.Upload) iter.Seq[domain.ParseResult]
}

type ParseHandler struct {
	svc    ParseService
	logger *zap.Logger
}

func NewParseHandler(svc ParseService, logger *zap.Logger) *ParseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParseHandler{svc: svc, logger: logger}
}

// Parse extracts the text of a single uploaded file.
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	defer cleanupForm(r)

	file, ok := singleUpload(w, r)
	if !ok {
		return
	}

	result, err := h.svc.ParseFile(r.Context(), file)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// ParseBatch streams one NDJSON record per uploaded file, flushing after each
// so the client can consume results as they are produced. The final record
// is the Finished sentinel.
func (h *ParseHandler) ParseBatch(w http.ResponseWriter, r *http.Request) {
	defer cleanupForm(r)

	uploads, err := formUploads(r, "files")
	if err != nil {
		writeUploadError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	for result := range h.svc.ParseBatch(r.Context(), uploads) {
		if err := enc.Encode(result); err != nil {
			h.logger.Debug("parse stream closed", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil {
			h.logger.Debug("parse stream flush failed", zap.Error(err))
			return
		}
	}
}
