package server

import (
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes int64 = 50 * 1024 * 1024

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	Logger          *zap.Logger
	MaxBodyBytes    int64
	ParseHandler    *handlers.ParseHandler
	EmbedHandler    *handlers.EmbedHandler
	DocumentHandler *handlers.DocumentHandler
	IngestHandler   *handlers.IngestHandler
	QueryHandler    *handlers.QueryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry())
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/parse", cfg.ParseHandler.Parse)
		r.Post("/parse/batch", cfg.ParseHandler.ParseBatch)
		r.Post("/embed", cfg.EmbedHandler.Embed)
		r.Post("/ingest", cfg.IngestHandler.Ingest)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Create)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Patch("/{id}", cfg.DocumentHandler.Update)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/reingest", cfg.IngestHandler.Reingest)
		})

		r.Post("/query", cfg.QueryHandler.Query)
		r.Post("/query/documents", cfg.QueryHandler.RankDocuments)
	})

	return r
}
