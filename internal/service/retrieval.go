package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/metrics"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"go.uber.org/zap"
)

const (
	DefaultTopK             = 5
	DefaultChunksToConsider = 200
	DefaultTopKDocs         = 5
)

// VectorStore persists chunk embeddings and answers cosine nearest-neighbor
// queries. Hits come back ordered by ascending distance, ties by chunk id.
type VectorStore interface {
	Name() string
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	ReplaceDocumentChunks(ctx context.Context, documentID int64, chunks []domain.Chunk) error
	QuerySimilarChunks(ctx context.Context, query []float32, k int, filter domain.ChunkFilter) ([]domain.SimilarityHit, error)
	QuerySimilarDocuments(ctx context.Context, query []float32, chunksToConsider, topKDocs int, filter domain.ChunkFilter) ([]domain.DocumentRank, error)
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// Embedder is satisfied by *embedding.Gateway.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// SearchInput selects the chunks nearest to Query. When Vector is set it is
// used as is and Query is ignored.
type SearchInput struct {
	OwnerID     *int64
	Query       string
	Vector      []float32
	DocumentIDs []int64
	TopK        int
}

type RankInput struct {
	OwnerID          *int64
	Query            string
	Vector           []float32
	DocumentIDs      []int64
	ChunksToConsider int
	TopKDocs         int
}

type RetrievalService struct {
	embedder Embedder
	store    VectorStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewRetrievalService(embedder Embedder, store VectorStore, m *metrics.Metrics, logger *zap.Logger) *RetrievalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{
		embedder: embedder,
		store:    store,
		metrics:  m,
		logger:   logger,
	}
}

// SearchChunks returns the TopK chunks closest to the query.
func (s *RetrievalService) SearchChunks(ctx context.Context, input SearchInput) ([]domain.SimilarityHit, error) {
	topK := input.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if err := domain.ValidateResultCount(topK); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.SearchChunks", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		Backend:   s.store.Name(),
		Operation: "search_chunks",
	})
	defer span.End()

	vector, err := s.queryVector(ctx, input.Query, input.Vector)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	start := time.Now()
	hits, err := s.store.QuerySimilarChunks(ctx, vector, topK, domain.ChunkFilter{
		OwnerID:     input.OwnerID,
		DocumentIDs: input.DocumentIDs,
	})
	s.metrics.ObserveRetrieval("chunks", s.store.Name(), time.Since(start))
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.logger.Debug("chunk search",
		zap.Int("top_k", topK),
		zap.Int("hits", len(hits)),
		zap.Int("document_filter", len(input.DocumentIDs)),
	)
	return hits, nil
}

// RankDocuments retrieves ChunksToConsider nearest chunks and ranks their
// documents by mean similarity.
func (s *RetrievalService) RankDocuments(ctx context.Context, input RankInput) ([]domain.DocumentRank, error) {
	chunksToConsider := input.ChunksToConsider
	if chunksToConsider == 0 {
		chunksToConsider = DefaultChunksToConsider
	}
	topKDocs := input.TopKDocs
	if topKDocs == 0 {
		topKDocs = DefaultTopKDocs
	}
	if err := domain.ValidateResultCount(chunksToConsider); err != nil {
		return nil, err
	}
	if err := domain.ValidateResultCount(topKDocs); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.RankDocuments", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		Backend:   s.store.Name(),
		Operation: "rank_documents",
	})
	defer span.End()

	vector, err := s.queryVector(ctx, input.Query, input.Vector)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	start := time.Now()
	ranks, err := s.store.QuerySimilarDocuments(ctx, vector, chunksToConsider, topKDocs, domain.ChunkFilter{
		OwnerID:     input.OwnerID,
		DocumentIDs: input.DocumentIDs,
	})
	s.metrics.ObserveRetrieval("documents", s.store.Name(), time.Since(start))
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return ranks, nil
}

func (s *RetrievalService) queryVector(ctx context.Context, query string, vector []float32) ([]float32, error) {
	if len(vector) > 0 {
		return vector, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	return s.embedder.EmbedOne(ctx, query)
}
