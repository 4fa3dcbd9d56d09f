package vectorstore

import (
	"testing"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateDocuments(t *testing.T) {
	hits := []domain.SimilarityHit{
		{ChunkID: "a", DocumentID: 1, Distance: 0.1},
		{ChunkID: "b", DocumentID: 2, Distance: 0.2},
		{ChunkID: "c", DocumentID: 1, Distance: 0.3},
		{ChunkID: "d", DocumentID: 3, Distance: 0.9},
	}

	ranks := AggregateDocuments(hits, 5)

	require.Len(t, ranks, 3)
	assert.Equal(t, int64(2), ranks[0].DocumentID)
	assert.Equal(t, 1, ranks[0].MatchCount)
	assert.InDelta(t, 0.8, ranks[0].AvgSimilarity, 1e-9)

	assert.Equal(t, int64(1), ranks[1].DocumentID)
	assert.Equal(t, 2, ranks[1].MatchCount)
	assert.InDelta(t, 0.8, ranks[1].AvgSimilarity, 1e-9)

	assert.Equal(t, int64(3), ranks[2].DocumentID)
	assert.InDelta(t, 0.1, ranks[2].AvgSimilarity, 1e-9)
}

func TestAggregateDocuments_TopKTruncates(t *testing.T) {
	hits := []domain.SimilarityHit{
		{ChunkID: "a", DocumentID: 1, Distance: 0.5},
		{ChunkID: "b", DocumentID: 2, Distance: 0.1},
		{ChunkID: "c", DocumentID: 3, Distance: 0.3},
	}

	ranks := AggregateDocuments(hits, 2)

	require.Len(t, ranks, 2)
	assert.Equal(t, int64(2), ranks[0].DocumentID)
	assert.Equal(t, int64(3), ranks[1].DocumentID)
}

func TestAggregateDocuments_OnlyPoolContributes(t *testing.T) {
	pool := []domain.SimilarityHit{
		{ChunkID: "a", DocumentID: 7, Distance: 0.2},
		{ChunkID: "b", DocumentID: 7, Distance: 0.4},
	}

	ranks := AggregateDocuments(pool, 1)

	require.Len(t, ranks, 1)
	assert.Equal(t, 2, ranks[0].MatchCount)
	assert.InDelta(t, 0.7, ranks[0].AvgSimilarity, 1e-9)
}

func TestAggregateDocuments_Empty(t *testing.T) {
	assert.Empty(t, AggregateDocuments(nil, 5))
	assert.Empty(t, AggregateDocuments([]domain.SimilarityHit{{DocumentID: 1}}, 0))
}

func TestSortHits_TieBreakByChunkID(t *testing.T) {
	hits := []domain.SimilarityHit{
		{ChunkID: "c", Distance: 0.2},
		{ChunkID: "b", Distance: 0.1},
		{ChunkID: "a", Distance: 0.2},
	}

	SortHits(hits)

	assert.Equal(t, []string{"b", "a", "c"}, []string{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID})
}
