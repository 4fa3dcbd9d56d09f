package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// wrap returns a writer that records status and size while still exposing
// Flush to http.ResponseController.
func wrap(w http.ResponseWriter, r *http.Request) chimw.WrapResponseWriter {
	if ww, ok := w.(chimw.WrapResponseWriter); ok {
		return ww
	}
	return chimw.NewWrapResponseWriter(w, r.ProtoMajor)
}

// statusOf treats a handler that never wrote as 200, matching net/http.
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// AccessLog writes one info entry per request once the handler returns. Any
// owner header sent by the client is dropped so only APIKeyAuth can set it.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(OwnerIDHeader)
			ww := wrap(w, r)
			began := time.Now()

			next.ServeHTTP(ww, r)

			entry := make([]zap.Field, 0, 9)
			entry = append(entry,
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", statusOf(ww)),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(began).Milliseconds()),
				zap.String("remote_addr", remoteIP(r)),
			)
			for key, val := range map[string]string{
				"request_id": GetRequestID(r.Context()),
				"owner_id":   r.Header.Get(OwnerIDHeader),
				"user_agent": r.UserAgent(),
			} {
				if val != "" {
					entry = append(entry, zap.String(key, val))
				}
			}
			logger.Info("http request", entry...)
		})
	}
}

// remoteIP prefers the first proxy hop over the socket address.
func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
