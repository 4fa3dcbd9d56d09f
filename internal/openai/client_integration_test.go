//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_EmbedPassages_RealAPI(t *testing.T) {
	apiKey := os.Getenv("DOCRAG_OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("DOCRAG_OPENAI_API_KEY not set")
	}

	e, err := NewEmbedder(EmbedderConfig{APIKey: apiKey})
	require.NoError(t, err)

	vectors, err := e.EmbedPassages(context.Background(), []string{
		"This is a test document for generating embeddings.",
		"A second passage in the same request.",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], DefaultEmbeddingDimensions)
}
