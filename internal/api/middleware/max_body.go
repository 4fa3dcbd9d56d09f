package middleware

import (
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
)

// MaxBodyBytes caps every request body at the upload limit (MAX_UPLOAD_MB).
// A declared Content-Length over the cap gets 413 before auth runs or a
// staging file is written. Chunked bodies are cut off by http.MaxBytesReader
// and the upload handlers turn that into 413 as well. limit <= 0 disables
// the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
