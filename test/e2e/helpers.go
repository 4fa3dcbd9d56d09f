//go:build e2e

package e2e

import (
	"context"
	"hash/fnv"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/cli/client"
	"github.com/cloo-solutions/docrag/internal/embedding"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/cloo-solutions/docrag/internal/metrics"
	"github.com/cloo-solutions/docrag/internal/repository"
	"github.com/cloo-solutions/docrag/internal/server"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/cloo-solutions/docrag/internal/storage"
	"github.com/cloo-solutions/docrag/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const dimension = 384

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T        *testing.T
	Ctx      context.Context
	Pool     *pgxpool.Pool
	Server   *httptest.Server
	AuthSvc  *service.AuthService
	Metrics  *metrics.Metrics
	WorkDir  string
	S3Client *storage.S3Client
}

// SetupE2EEnv starts Postgres and RustFS and serves the full router
// against them with a deterministic embedding model.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSCredential,
		SecretAccessKey: testutil.RustFSCredential,
		Bucket:          "docrag-e2e",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, s3Client.EnsureBucket(ctx))

	m := metrics.New()
	gateway := embedding.NewGateway(func(context.Context) (embedding.Provider, error) {
		return hashingProvider{}, nil
	}, dimension, m, logger)
	require.NoError(t, gateway.Init(ctx))

	registry := extract.NewDefaultRegistry(extract.Options{
		Runner:           extract.ExecRunner{},
		MaxAudioBytes:    10 << 20,
		MaxAudioDuration: 20 * time.Minute,
	}, logger)
	parseSvc := service.NewParseService(registry, service.ParseConfig{
		StagingDir:     t.TempDir(),
		ExtractTimeout: 30 * time.Second,
	}, m, logger)

	vectors := repository.NewChunkRepository(pool, dimension)
	docRepo := repository.NewDocumentRepository(pool)
	authSvc := service.NewAuthService(repository.NewAPIKeyRepository(pool), nil)

	ingestSvc := service.NewIngestService(service.IngestServiceConfig{
		Parser:   parseSvc,
		Chunker:  service.NewChunker(service.ChunkConfig{Size: 120, Overlap: 20}, logger),
		Embedder: gateway,
		Docs:     docRepo,
		Vectors:  vectors,
		TxRunner: repository.NewTxRunner(pool, dimension),
		Storage:  s3Client,
		Metrics:  m,
		Logger:   logger,
		SharedTx: true,
	})

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   authSvc,
		Logger:          logger,
		MaxBodyBytes:    5 << 20,
		ParseHandler:    handlers.NewParseHandler(parseSvc, logger),
		EmbedHandler:    handlers.NewEmbedHandler(service.NewEmbeddingService(gateway)),
		DocumentHandler: handlers.NewDocumentHandler(service.NewDocumentService(docRepo, vectors, s3Client, logger)),
		IngestHandler:   handlers.NewIngestHandler(ingestSvc),
		QueryHandler:    handlers.NewQueryHandler(service.NewRetrievalService(gateway, vectors, m, logger)),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &E2ETestEnv{
		T:        t,
		Ctx:      ctx,
		Pool:     pool,
		Server:   srv,
		AuthSvc:  authSvc,
		Metrics:  m,
		WorkDir:  t.TempDir(),
		S3Client: s3Client,
	}
}

// ClientFor creates an API key for owner and returns a CLI client using it.
func (e *E2ETestEnv) ClientFor(ownerID int64) *client.APIClient {
	token, _, err := e.AuthSvc.CreateAPIKey(e.Ctx, ownerID, "e2e")
	require.NoError(e.T, err)
	return client.NewAPIClientWithConfig(token, e.Server.URL)
}

// WriteFile creates a file in the environment's work dir.
func (e *E2ETestEnv) WriteFile(name, content string) string {
	path := filepath.Join(e.WorkDir, name)
	require.NoError(e.T, os.WriteFile(path, []byte(content), 0600))
	return path
}

// hashingProvider embeds text as a normalized bag of hashed words, so texts
// sharing words are close under cosine distance.
type hashingProvider struct{}

func (hashingProvider) Name() string   { return "hashing" }
func (hashingProvider) Dimension() int { return dimension }
func (hashingProvider) Close() error   { return nil }

func (p hashingProvider) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t)
	}
	return out, nil
}

func (p hashingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

func hashEmbed(text string) []float32 {
	v := make([]float32, dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%dimension]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}
