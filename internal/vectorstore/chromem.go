package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cloo-solutions/docrag/internal/domain"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

const (
	metaDocumentID = "document_id"
	metaOwnerID    = "owner_id"
	metaChunkIndex = "chunk_index"
)

var errNoTextEmbedding = errors.New("chromem store only accepts precomputed embeddings")

// ChromemStore keeps chunks in an in-process chromem-go collection. It is
// meant for development and tests; nothing survives a restart.
type ChromemStore struct {
	collection *chromem.Collection
	dimension  int
	// serializes replace-style writes so a delete and its re-insert are not
	// interleaved with another replace of the same document
	mu     sync.Mutex
	logger *zap.Logger
}

// NewChromemStore creates an empty in-memory collection.
func NewChromemStore(collectionName string, dimension int, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collectionName == "" {
		collectionName = "chunks"
	}

	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoTextEmbedding
	})
	if err != nil {
		return nil, fmt.Errorf("creating chromem collection %s: %w", collectionName, err)
	}

	return &ChromemStore{
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}, nil
}

func (s *ChromemStore) Name() string { return BackendChromem }

// Upsert writes chunks keyed by chunk id; an existing id is overwritten.
func (s *ChromemStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i := range chunks {
		if err := domain.ValidateChunk(&chunks[i], s.dimension); err != nil {
			return err
		}
		docs[i] = toChromemDocument(chunks[i])
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding chunks: %w", err)
	}
	return nil
}

// ReplaceDocumentChunks drops every chunk of documentID, then writes chunks.
func (s *ChromemStore) ReplaceDocumentChunks(ctx context.Context, documentID int64, chunks []domain.Chunk) error {
	for i := range chunks {
		if err := domain.ValidateChunk(&chunks[i], s.dimension); err != nil {
			return err
		}
		if chunks[i].DocumentID != documentID {
			return domain.NewDomainError(domain.ErrCodeValidation, "chunk belongs to a different document")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return s.Upsert(ctx, chunks)
}

// QuerySimilarChunks returns up to k chunks ordered by ascending cosine
// distance. A document id filter is evaluated as one query per id.
func (s *ChromemStore) QuerySimilarChunks(ctx context.Context, query []float32, k int, filter domain.ChunkFilter) ([]domain.SimilarityHit, error) {
	if err := domain.ValidateResultCount(k); err != nil {
		return nil, err
	}
	if s.dimension > 0 && len(query) != s.dimension {
		return nil, domain.ErrDimensionMismatch
	}

	var hits []domain.SimilarityHit
	if len(filter.DocumentIDs) == 0 {
		res, err := s.query(ctx, query, k, ownerWhere(filter.OwnerID))
		if err != nil {
			return nil, err
		}
		hits = res
	} else {
		for _, id := range uniqueIDs(filter.DocumentIDs) {
			where := ownerWhere(filter.OwnerID)
			if where == nil {
				where = map[string]string{}
			}
			where[metaDocumentID] = strconv.FormatInt(id, 10)

			res, err := s.query(ctx, query, k, where)
			if err != nil {
				return nil, err
			}
			hits = append(hits, res...)
		}
	}

	SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []domain.SimilarityHit{}
	}
	return hits, nil
}

// QuerySimilarDocuments runs the two-stage document ranking over the
// chunksToConsider nearest chunks.
func (s *ChromemStore) QuerySimilarDocuments(ctx context.Context, query []float32, chunksToConsider, topKDocs int, filter domain.ChunkFilter) ([]domain.DocumentRank, error) {
	if err := domain.ValidateResultCount(topKDocs); err != nil {
		return nil, err
	}
	hits, err := s.QuerySimilarChunks(ctx, query, chunksToConsider, filter)
	if err != nil {
		return nil, err
	}
	return AggregateDocuments(hits, topKDocs), nil
}

// DeleteByDocument removes every chunk of documentID.
func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByDocument(ctx, documentID)
}

func (s *ChromemStore) deleteByDocument(ctx context.Context, documentID int64) error {
	where := map[string]string{metaDocumentID: strconv.FormatInt(documentID, 10)}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("deleting chunks of document %d: %w", documentID, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) Close() error { return nil }

func (s *ChromemStore) query(ctx context.Context, query []float32, k int, where map[string]string) ([]domain.SimilarityHit, error) {
	n := s.collection.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	results, err := s.collection.QueryEmbedding(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}

	hits := make([]domain.SimilarityHit, 0, len(results))
	for _, r := range results {
		docID, err := strconv.ParseInt(r.Metadata[metaDocumentID], 10, 64)
		if err != nil {
			s.logger.Warn("skipping chunk with malformed document id", zap.String("chunk_id", r.ID))
			continue
		}
		hits = append(hits, domain.SimilarityHit{
			ChunkID:    r.ID,
			DocumentID: docID,
			Text:       r.Content,
			Distance:   1 - float64(r.Similarity),
		})
	}
	return hits, nil
}

func toChromemDocument(c domain.Chunk) chromem.Document {
	meta := map[string]string{
		metaDocumentID: strconv.FormatInt(c.DocumentID, 10),
		metaChunkIndex: strconv.Itoa(c.ChunkIndex),
	}
	if c.OwnerID != nil {
		meta[metaOwnerID] = strconv.FormatInt(*c.OwnerID, 10)
	}
	embedding := make([]float32, len(c.Embedding))
	copy(embedding, c.Embedding)

	return chromem.Document{
		ID:        c.ID,
		Metadata:  meta,
		Embedding: embedding,
		Content:   c.Text,
	}
}

func ownerWhere(ownerID *int64) map[string]string {
	if ownerID == nil {
		return nil
	}
	return map[string]string{metaOwnerID: strconv.FormatInt(*ownerID, 10)}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
