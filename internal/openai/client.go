// Package openai talks to OpenAI-compatible HTTP APIs: the embeddings
// endpoint for the remote embedding provider and the audio transcription
// endpoint for speech extraction.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docrag/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel can shorten its output, so it fits the
	// 384-dimensional chunk column.
	DefaultEmbeddingModel      = openai.SmallEmbedding3
	DefaultEmbeddingDimensions = 384
	ProviderName               = "openai"
)

var (
	ErrNoAPIKey      = errors.New("openai api key is not configured")
	ErrEmptyText     = errors.New("text cannot be empty")
	ErrShortResponse = errors.New("embedding response does not match input length")
)

// embeddingsAPI is the remote call, swapped out in tests.
type embeddingsAPI interface {
	createEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbedderConfig struct {
	APIKey string
	// BaseURL points at an OpenAI-compatible server. Empty means OpenAI.
	BaseURL    string
	Model      openai.EmbeddingModel
	Dimensions int
}

// Embedder implements the remote embedding provider. Every call sends the
// whole batch in one request.
type Embedder struct {
	api        embeddingsAPI
	dimensions int
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultEmbeddingDimensions
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Embedder{
		api: &remoteEmbeddings{
			client:     openai.NewClientWithConfig(clientCfg),
			model:      cfg.Model,
			dimensions: cfg.Dimensions,
		},
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *Embedder) Name() string   { return ProviderName }
func (e *Embedder) Dimension() int { return e.dimensions }
func (e *Embedder) Close() error   { return nil }

// EmbedPassages returns one vector per text, in input order. A vector of
// the wrong length fails the whole batch with DIMENSION_MISMATCH.
func (e *Embedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	vectors, err := e.api.createEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, ErrShortResponse
	}
	for i, v := range vectors {
		if len(v) != e.dimensions {
			return nil, domain.WithCause(domain.ErrDimensionMismatch,
				fmt.Errorf("vector %d: expected %d, got %d", i, e.dimensions, len(v)))
		}
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedPassages(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type remoteEmbeddings struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// createEmbeddings places each result by its reported index, since the API
// does not promise response order.
func (r *remoteEmbeddings) createEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{Input: texts, Model: r.model}
	// ada-002 rejects the dimensions parameter.
	if r.model != openai.AdaEmbeddingV2 {
		req.Dimensions = r.dimensions
	}

	resp, err := r.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, ErrShortResponse
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("embedding index %d out of range or repeated", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
