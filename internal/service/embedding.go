package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/telemetry"
)

// EmbeddingService exposes the embedding model to callers outside the
// ingestion path.
type EmbeddingService struct {
	embedder Embedder
}

func NewEmbeddingService(embedder Embedder) *EmbeddingService {
	return &EmbeddingService{embedder: embedder}
}

// EmbedText returns the vector for a single piece of text.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "text must not be empty")
	}

	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.EmbedText", telemetry.SpanAttributes{
		Operation: "embed",
	})
	defer span.End()

	vec, err := s.embedder.EmbedOne(ctx, text)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return vec, nil
}
