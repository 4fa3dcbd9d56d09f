package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/service"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

var errNoFile = errors.New("no file uploaded")

// formUploads parses a multipart request and returns the files sent under
// field, in the order the client sent them.
func formUploads(r *http.Request, field string) ([]service.Upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, errNoFile
	}

	uploads := make([]service.Upload, len(headers))
	for i, fh := range headers {
		uploads[i] = fileUpload(fh)
	}
	return uploads, nil
}

func fileUpload(fh *multipart.FileHeader) service.Upload {
	return service.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// writeUploadError reports a failure from formUploads.
func writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, errNoFile):
		api.Error(w, http.StatusBadRequest, errNoFile.Error())
	default:
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
	}
}

// cleanupForm removes any temporary files the multipart parser created.
func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
