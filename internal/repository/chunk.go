package repository

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// BackendPgvector names the SQL chunk store in metrics and logs.
const BackendPgvector = "pgvector"

const upsertChunkSQL = `
INSERT INTO chunks (id, document_id, owner_id, chunk_index, text, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	owner_id = EXCLUDED.owner_id,
	chunk_index = EXCLUDED.chunk_index,
	text = EXCLUDED.text,
	embedding = EXCLUDED.embedding`

// The inner query keeps the shape the HNSW index can serve (ORDER BY the
// distance operator with a LIMIT); the outer one fixes the order of ties.
const similarChunksSQL = `
SELECT id::text, document_id, text, distance
FROM (
	SELECT id, document_id, text, embedding <=> $1 AS distance
	FROM chunks
	WHERE ($2::bigint IS NULL OR owner_id = $2)
	  AND (cardinality($3::bigint[]) = 0 OR document_id = ANY($3))
	ORDER BY embedding <=> $1
	LIMIT $4
) AS nearest
ORDER BY distance, id`

const similarDocumentsSQL = `
WITH top_chunks AS (
	SELECT document_id, embedding <=> $1 AS distance
	FROM chunks
	WHERE ($2::bigint IS NULL OR owner_id = $2)
	  AND (cardinality($3::bigint[]) = 0 OR document_id = ANY($3))
	ORDER BY embedding <=> $1
	LIMIT $4
)
SELECT document_id, COUNT(*) AS match_count, AVG(1 - distance) AS avg_similarity
FROM top_chunks
GROUP BY document_id
ORDER BY avg_similarity DESC, document_id
LIMIT $5`

// ChunkRepository stores chunks and their embeddings in Postgres and answers
// cosine nearest-neighbor queries with pgvector.
type ChunkRepository struct {
	db        dbtx
	dimension int
}

func NewChunkRepository(pool *pgxpool.Pool, dimension int) *ChunkRepository {
	return &ChunkRepository{db: pool, dimension: dimension}
}

func NewChunkRepositoryWithTx(tx dbtx, dimension int) *ChunkRepository {
	return &ChunkRepository{db: tx, dimension: dimension}
}

func (r *ChunkRepository) Name() string { return BackendPgvector }

// Upsert writes all chunks in a single transaction.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch, err := r.upsertBatch(chunks)
	if err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		return sendBatch(ctx, tx, batch)
	})
}

// ReplaceDocumentChunks deletes the document's chunks and inserts the new
// set atomically.
func (r *ChunkRepository) ReplaceDocumentChunks(ctx context.Context, documentID int64, chunks []domain.Chunk) error {
	for i := range chunks {
		if chunks[i].DocumentID != documentID {
			return domain.NewDomainError(domain.ErrCodeValidation, "chunk belongs to a different document")
		}
	}
	batch, err := r.upsertBatch(chunks)
	if err != nil {
		return err
	}

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
			return err
		}
		if batch.Len() == 0 {
			return nil
		}
		return sendBatch(ctx, tx, batch)
	})
}

func (r *ChunkRepository) QuerySimilarChunks(ctx context.Context, query []float32, k int, filter domain.ChunkFilter) ([]domain.SimilarityHit, error) {
	if err := domain.ValidateResultCount(k); err != nil {
		return nil, err
	}
	if r.dimension > 0 && len(query) != r.dimension {
		return nil, domain.ErrDimensionMismatch
	}

	rows, err := r.db.Query(ctx, similarChunksSQL,
		pgvector.NewVector(query), filter.OwnerID, documentIDs(filter), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]domain.SimilarityHit, 0, k)
	for rows.Next() {
		var h domain.SimilarityHit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.Text, &h.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (r *ChunkRepository) QuerySimilarDocuments(ctx context.Context, query []float32, chunksToConsider, topKDocs int, filter domain.ChunkFilter) ([]domain.DocumentRank, error) {
	if err := domain.ValidateResultCount(chunksToConsider); err != nil {
		return nil, err
	}
	if err := domain.ValidateResultCount(topKDocs); err != nil {
		return nil, err
	}
	if r.dimension > 0 && len(query) != r.dimension {
		return nil, domain.ErrDimensionMismatch
	}

	rows, err := r.db.Query(ctx, similarDocumentsSQL,
		pgvector.NewVector(query), filter.OwnerID, documentIDs(filter), chunksToConsider, topKDocs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranks := make([]domain.DocumentRank, 0, topKDocs)
	for rows.Next() {
		var rank domain.DocumentRank
		if err := rows.Scan(&rank.DocumentID, &rank.MatchCount, &rank.AvgSimilarity); err != nil {
			return nil, err
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

// CountByDocument returns how many chunks a document has.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

func (r *ChunkRepository) Close() error { return nil }

func (r *ChunkRepository) upsertBatch(chunks []domain.Chunk) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for i := range chunks {
		c := &chunks[i]
		if err := domain.ValidateChunk(c, r.dimension); err != nil {
			return nil, err
		}
		batch.Queue(upsertChunkSQL,
			c.ID, c.DocumentID, c.OwnerID, c.ChunkIndex, c.Text, pgvector.NewVector(c.Embedding),
		)
	}
	return batch, nil
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("upserting chunk %d: %w", i, err)
		}
	}
	return results.Close()
}

func documentIDs(filter domain.ChunkFilter) []int64 {
	if filter.DocumentIDs == nil {
		return []int64{}
	}
	return filter.DocumentIDs
}
