package database

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const annIndexName = "idx_chunks_embedding_hnsw"

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ANNIndexSQL renders the HNSW index statement. Non-positive parameters fall
// back to the pgvector defaults (m=16, ef_construction=64).
func ANNIndexSQL(m, efConstruction int) string {
	if m <= 0 {
		m = 16
	}
	if efConstruction <= 0 {
		efConstruction = 64
	}
	return fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d)`,
		annIndexName, m, efConstruction,
	)
}

// EnsureANNIndex creates the cosine HNSW index over chunks.embedding when it
// is missing. An existing index keeps the parameters it was built with.
func EnsureANNIndex(ctx context.Context, db Execer, m, efConstruction int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = $1)`, annIndexName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking ann index: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.Exec(ctx, ANNIndexSQL(m, efConstruction)); err != nil {
		return fmt.Errorf("creating ann index: %w", err)
	}
	logger.Info("created ann index",
		zap.String("index", annIndexName),
		zap.Int("m", m),
		zap.Int("ef_construction", efConstruction),
	)
	return nil
}

// EmbeddingColumnDimension returns the declared length of chunks.embedding.
func EmbeddingColumnDimension(ctx context.Context, db Execer) (int, error) {
	var typmod int
	err := db.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		WHERE a.attrelid = 'chunks'::regclass AND a.attname = 'embedding' AND NOT a.attisdropped`,
	).Scan(&typmod)
	if err != nil {
		return 0, fmt.Errorf("reading embedding column type: %w", err)
	}
	return typmod, nil
}

// CheckEmbeddingDimension fails with ErrDimensionMismatch when the stored
// column length differs from the configured model dimension.
func CheckEmbeddingDimension(ctx context.Context, db Execer, want int) error {
	got, err := EmbeddingColumnDimension(ctx, db)
	if err != nil {
		return err
	}
	if got > 0 && got != want {
		return domain.WithCause(domain.ErrDimensionMismatch,
			fmt.Errorf("chunks.embedding is vector(%d), embedding model produces %d", got, want))
	}
	return nil
}
