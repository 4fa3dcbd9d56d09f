package domain

// SimilarityHit is one chunk returned by a nearest-neighbor query.
// Distance is cosine distance: lower is more similar.
type SimilarityHit struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// DocumentRank is one document in a two-stage aggregated ranking.
type DocumentRank struct {
	DocumentID    int64   `json:"document_id"`
	MatchCount    int     `json:"match_count"`
	AvgSimilarity float64 `json:"avg_similarity"`
}

// ChunkFilter narrows a nearest-neighbor query. A nil OwnerID or empty
// DocumentIDs means no restriction.
type ChunkFilter struct {
	OwnerID     *int64
	DocumentIDs []int64
}

// MaxResultCount bounds every K accepted by the retrieval layer.
const MaxResultCount = 1000

// ValidateResultCount checks that k is in 1..MaxResultCount.
func ValidateResultCount(k int) error {
	if k < 1 || k > MaxResultCount {
		return ErrInvalidLimit
	}
	return nil
}
