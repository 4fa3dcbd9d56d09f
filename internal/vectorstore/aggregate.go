// Package vectorstore implements the non-SQL chunk stores and the
// document-level aggregation they share.
package vectorstore

import (
	"sort"

	"github.com/cloo-solutions/docrag/internal/domain"
)

const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// SortHits orders hits by ascending distance, breaking ties by chunk id.
func SortHits(hits []domain.SimilarityHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}

// AggregateDocuments groups a candidate pool of hits by document and
// returns the topKDocs groups with the highest mean similarity (1 - distance).
// Only the given hits contribute to a group's statistics.
func AggregateDocuments(hits []domain.SimilarityHit, topKDocs int) []domain.DocumentRank {
	if len(hits) == 0 || topKDocs <= 0 {
		return []domain.DocumentRank{}
	}

	type acc struct {
		count int
		sum   float64
	}
	groups := make(map[int64]*acc)
	order := make([]int64, 0)
	for _, h := range hits {
		g, ok := groups[h.DocumentID]
		if !ok {
			g = &acc{}
			groups[h.DocumentID] = g
			order = append(order, h.DocumentID)
		}
		g.count++
		g.sum += 1 - h.Distance
	}

	ranks := make([]domain.DocumentRank, 0, len(order))
	for _, id := range order {
		g := groups[id]
		ranks = append(ranks, domain.DocumentRank{
			DocumentID:    id,
			MatchCount:    g.count,
			AvgSimilarity: g.sum / float64(g.count),
		})
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].AvgSimilarity != ranks[j].AvgSimilarity {
			return ranks[i].AvgSimilarity > ranks[j].AvgSimilarity
		}
		return ranks[i].DocumentID < ranks[j].DocumentID
	})

	if len(ranks) > topKDocs {
		ranks = ranks[:topKDocs]
	}
	return ranks
}
