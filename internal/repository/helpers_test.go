//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// testDimension matches the vector column in the migrations.
const testDimension = 384

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	return testutil.NewTestPool(ctx, t, pc, "../../migrations")
}

// unitVector returns a vector pointing mostly along axis, tilted towards
// axis+1 by tilt, so cosine distances between test vectors are predictable.
func unitVector(axis int, tilt float32) []float32 {
	v := make([]float32, testDimension)
	v[axis] = 1
	v[(axis+1)%testDimension] = tilt
	return v
}

func createDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, ownerID *int64, title string) *domain.Document {
	t.Helper()
	d := &domain.Document{OwnerID: ownerID, Title: title}
	require.NoError(t, repo.Create(ctx, d))
	return d
}

func newChunk(doc *domain.Document, index int, text string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		ChunkIndex: index,
		Text:       text,
		Embedding:  embedding,
	}
}

func ptr[T any](v T) *T { return &v }
