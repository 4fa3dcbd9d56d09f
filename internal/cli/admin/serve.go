package admin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/database"
	"github.com/cloo-solutions/docrag/internal/embedding"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/cloo-solutions/docrag/internal/jobs"
	"github.com/cloo-solutions/docrag/internal/logging"
	"github.com/cloo-solutions/docrag/internal/metrics"
	"github.com/cloo-solutions/docrag/internal/openai"
	"github.com/cloo-solutions/docrag/internal/repository"
	"github.com/cloo-solutions/docrag/internal/server"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/cloo-solutions/docrag/internal/storage"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"github.com/cloo-solutions/docrag/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	janitorInterval = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the docrag API server.

Migrations are applied first unless --no-migrate is set. SIGINT or SIGTERM
drains in-flight requests for up to 30s before exiting.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on (overrides DOCRAG_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", database.DefaultMigrationsPath, "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	flushTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: traceSampleRate(cfg.Environment),
		Logger:           logger,
	})
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	} else {
		defer flushTelemetry()
	}

	if skip, _ := cmd.Flags().GetBool("no-migrate"); !skip {
		source, _ := cmd.Flags().GetString("migrations")
		if err := database.Migrate(cfg.DatabaseURL, source, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := database.CheckEmbeddingDimension(ctx, pool, cfg.EmbeddingDimensions); err != nil {
		return err
	}

	m := metrics.New()

	factory, err := embedding.FactoryFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	gateway := embedding.NewGateway(factory, cfg.EmbeddingDimensions, m, logger)
	if err := gateway.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize embedding model: %w", err)
	}
	defer gateway.Close()

	vectors, closeVectors, err := newVectorStore(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer closeVectors()

	archive, err := newObjectStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}

	authSvc := newAuthService(pool)
	if cfg.InitAPIKey != "" {
		if err := bootstrapAPIKey(ctx, cfg, authSvc, logger); err != nil {
			return fmt.Errorf("failed to bootstrap API key: %w", err)
		}
	}

	stagingDir := cmp.Or(cfg.StagingDir, os.TempDir())
	registry := extract.NewDefaultRegistry(extractOptions(cfg), logger)
	parseSvc := service.NewParseService(registry, service.ParseConfig{
		StagingDir:     stagingDir,
		ExtractTimeout: cfg.ExtractTimeout,
	}, m, logger)

	docRepo := repository.NewDocumentRepository(pool)
	ingestSvc := service.NewIngestService(service.IngestServiceConfig{
		Parser:   parseSvc,
		Chunker:  service.NewChunker(service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}, logger),
		Embedder: gateway,
		Docs:     docRepo,
		Vectors:  vectors,
		TxRunner: repository.NewTxRunner(pool, cfg.EmbeddingDimensions),
		Storage:  archive,
		Metrics:  m,
		Logger:   logger,
		SharedTx: cfg.VectorBackend == config.VectorBackendPgvector,
	})

	janitor := jobs.NewWorker("staging-janitor",
		jobs.NewStagingJanitor(stagingDir, service.StagingFilePrefix, cfg.StagingMaxAge, m, logger),
		janitorInterval, logger)
	go janitor.Start(ctx)
	defer janitor.Stop()

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   authSvc,
		Logger:          logger,
		MaxBodyBytes:    cfg.MaxUploadBytes(),
		ParseHandler:    handlers.NewParseHandler(parseSvc, logger),
		EmbedHandler:    handlers.NewEmbedHandler(service.NewEmbeddingService(gateway)),
		DocumentHandler: handlers.NewDocumentHandler(service.NewDocumentService(docRepo, vectors, archive, logger)),
		IngestHandler:   handlers.NewIngestHandler(ingestSvc),
		QueryHandler:    handlers.NewQueryHandler(service.NewRetrievalService(gateway, vectors, m, logger)),
	})

	logger.Info("starting server",
		zap.String("port", cfg.Port),
		zap.String("vector_backend", vectors.Name()),
		zap.String("embedding_provider", gateway.ProviderName()),
	)
	return listenAndServe(ctx, &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, logger)
}

// traceSampleRate keeps every trace in development and a tenth elsewhere.
func traceSampleRate(environment string) float64 {
	if environment == "development" {
		return 1.0
	}
	return 0.1
}

// listenAndServe serves until ctx is done, then drains open requests.
func listenAndServe(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	failed := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// newObjectStorage returns nil when S3 is not configured; originals are then
// not archived.
func newObjectStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.ObjectStorage, error) {
	if !cfg.HasS3() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	logger.Info("archiving originals", zap.String("bucket", cfg.S3Bucket))
	return client, nil
}

func extractOptions(cfg *config.Config) extract.Options {
	opts := extract.Options{
		Runner:             extract.ExecRunner{},
		MaxAudioBytes:      int64(cfg.MaxAudioSizeMB) * 1024 * 1024,
		MaxAudioDuration:   time.Duration(cfg.MaxAudioDurationMin) * time.Minute,
		SuppressOCRFailure: cfg.OCRFailurePolicy == config.OCRFailurePolicyEmpty,
	}
	if cfg.HasTranscription() {
		opts.Transcriber = openai.NewTranscriber(openai.TranscriptionConfig{
			APIKey:  cfg.TranscriptionAPIKey,
			BaseURL: cfg.TranscriptionBaseURL,
			Model:   cfg.TranscriptionModel,
		})
	}
	return opts
}

// newVectorStore opens the configured backend. The returned func releases it.
func newVectorStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (service.VectorStore, func(), error) {
	switch cfg.VectorBackend {
	case config.VectorBackendChromem:
		store, err := vectorstore.NewChromemStore(cfg.QdrantCollection, cfg.EmbeddingDimensions, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create chromem store: %w", err)
		}
		logger.Warn("using in-memory vector store; vectors are lost on restart")
		return store, func() { _ = store.Close() }, nil

	case config.VectorBackendQdrant:
		store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:               cfg.QdrantHost,
			Port:               cfg.QdrantPort,
			UseTLS:             cfg.QdrantUseTLS,
			Collection:         cfg.QdrantCollection,
			Dimension:          cfg.EmbeddingDimensions,
			HNSWM:              cfg.HNSWM,
			HNSWEfConstruction: cfg.HNSWEfConstruction,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to qdrant: %w", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	default:
		if err := database.EnsureANNIndex(ctx, pool, cfg.HNSWM, cfg.HNSWEfConstruction, logger); err != nil {
			return nil, nil, err
		}
		return repository.NewChunkRepository(pool, cfg.EmbeddingDimensions), func() {}, nil
	}
}

func bootstrapAPIKey(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, logger *zap.Logger) error {
	if cfg.InitOwnerID <= 0 {
		return fmt.Errorf("DOCRAG_INIT_API_KEY requires a positive DOCRAG_INIT_OWNER_ID")
	}

	created, err := authSvc.EnsureAPIKey(ctx, cfg.InitOwnerID, "bootstrap", cfg.InitAPIKey)
	if err != nil {
		return err
	}
	if created {
		logger.Info("bootstrap: created API key", zap.Int64("owner_id", cfg.InitOwnerID))
	} else {
		logger.Info("bootstrap: API key already exists", zap.Int64("owner_id", cfg.InitOwnerID))
	}
	return nil
}
