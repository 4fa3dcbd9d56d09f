package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
)

// Sentry opens a transaction per request and reports panics before
// re-raising them. Transactions are named after the chi route pattern so
// /documents/{id} groups every document id together.
func Sentry() func(http.Handler) http.Handler {
	handler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	return func(next http.Handler) http.Handler {
		return handler.Handle(annotate(next))
	}
}

// annotate runs inside the transaction and tags it once routing and auth
// have finished.
func annotate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := wrap(w, r)
		next.ServeHTTP(ww, r)

		ctx := r.Context()
		hub := sentry.GetHubFromContext(ctx)
		tx := sentry.TransactionFromContext(ctx)
		if hub == nil || tx == nil {
			return
		}

		if rctx := chi.RouteContext(ctx); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				tx.Name = r.Method + " " + pattern
				tx.Source = sentry.SourceRoute
			}
		}

		tags := map[string]string{
			"request_id": GetRequestID(ctx),
			"owner_id":   r.Header.Get(OwnerIDHeader),
		}
		for k, v := range tags {
			if v == "" {
				continue
			}
			hub.Scope().SetTag(k, v)
			tx.SetTag(k, v)
		}

		if status := statusOf(ww); status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d %s", status, tx.Name))
		}
	})
}
