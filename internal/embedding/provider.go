package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/openai"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	FastEmbedProviderName = "fastembed"
	DefaultFastEmbedModel = "BAAI/bge-small-en-v1.5"
	fastEmbedBatchSize    = 256
)

var ErrUnsupportedModel = errors.New("unsupported embedding model")

// FastEmbedConfig selects and caches a local model.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

var fastEmbedDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
}

// FastEmbedDimension returns the output length of a known local model.
func FastEmbedDimension(model string) (int, bool) {
	d, ok := fastEmbedDimensions[model]
	return d, ok
}

// FactoryFromConfig returns the Factory for the configured provider.
func FactoryFromConfig(cfg *config.Config) (Factory, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderFastEmbed:
		model := cfg.EmbeddingModel
		if model == "" {
			model = DefaultFastEmbedModel
		}
		if _, ok := FastEmbedDimension(model); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, model)
		}
		return func(context.Context) (Provider, error) {
			return NewFastEmbedProvider(FastEmbedConfig{
				Model:    model,
				CacheDir: cfg.EmbeddingCacheDir,
			})
		}, nil

	case config.EmbeddingProviderOpenAI:
		if !cfg.HasOpenAI() {
			return nil, openai.ErrNoAPIKey
		}
		return func(context.Context) (Provider, error) {
			e, err := openai.NewEmbedder(openai.EmbedderConfig{
				APIKey:     cfg.OpenAIAPIKey,
				BaseURL:    cfg.OpenAIBaseURL,
				Model:      openAIModel(cfg.EmbeddingModel),
				Dimensions: cfg.EmbeddingDimensions,
			})
			if err != nil {
				return nil, err
			}
			return e, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}

// The default model name targets fastembed; OpenAI falls back to its own
// default when given a local model name.
func openAIModel(name string) goopenai.EmbeddingModel {
	if _, local := fastEmbedDimensions[name]; local || name == "" {
		return openai.DefaultEmbeddingModel
	}
	return goopenai.EmbeddingModel(name)
}
