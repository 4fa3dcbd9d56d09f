package domain

// Chunk is one embedded window of a document's normalized text.
type Chunk struct {
	ID         string
	DocumentID int64
	OwnerID    *int64
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// ValidateChunk checks the per-chunk invariants against the configured
// embedding dimension.
func ValidateChunk(c *Chunk, dimension int) error {
	if c == nil || c.ID == "" || c.DocumentID == 0 {
		return ErrMissingRequiredField
	}
	if c.Text == "" {
		return ErrEmptyChunkText
	}
	if c.ChunkIndex < 0 {
		return NewDomainError(ErrCodeValidation, "chunk index cannot be negative")
	}
	if dimension > 0 && len(c.Embedding) != dimension {
		return ErrDimensionMismatch
	}
	return nil
}
