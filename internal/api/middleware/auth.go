package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloo-solutions/docrag/internal/api"
)

type contextKey string

const OwnerIDKey contextKey = "owner_id"

// OwnerIDHeader is set on the request after authentication so that outer
// middleware, which holds the pre-auth context, can still log the owner.
const OwnerIDHeader = "X-Owner-ID"

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (int64, error)
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			ownerID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			r.Header.Set(OwnerIDHeader, strconv.FormatInt(ownerID, 10))
			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}

// WithOwnerID returns a copy of ctx carrying the authenticated owner.
func WithOwnerID(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}

// GetOwnerID returns the authenticated owner, or nil outside the auth group.
func GetOwnerID(ctx context.Context) *int64 {
	ownerID, ok := ctx.Value(OwnerIDKey).(int64)
	if !ok {
		return nil
	}
	return &ownerID
}
