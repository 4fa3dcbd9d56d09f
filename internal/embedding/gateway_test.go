package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	dim    int
	closed atomic.Bool
	err    error
	short  bool
}

func (f *fakeProvider) Name() string   { return "fake" }
func (f *fakeProvider) Dimension() int { return f.dim }

func (f *fakeProvider) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeProvider) vector(text string) []float32 {
	v := make([]float32, f.dim)
	if f.dim > 0 {
		v[0] = float32(len(text))
	}
	return v
}

func (f *fakeProvider) Close() error {
	f.closed.Store(true)
	return nil
}

func staticFactory(p Provider, calls *atomic.Int32) Factory {
	return func(context.Context) (Provider, error) {
		if calls != nil {
			calls.Add(1)
		}
		return p, nil
	}
}

func TestGateway_NotReadyBeforeInit(t *testing.T) {
	g := NewGateway(staticFactory(&fakeProvider{dim: 4}, nil), 4, nil, nil)

	_, err := g.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingModelNotReady)

	_, err = g.EmbedOne(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrEmbeddingModelNotReady)
	assert.False(t, g.Ready())
}

func TestGateway_InitOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	g := NewGateway(staticFactory(&fakeProvider{dim: 4}, &calls), 4, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Init(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, g.Ready())
	assert.Equal(t, "fake", g.ProviderName())
}

func TestGateway_InitRetriesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	g := NewGateway(func(context.Context) (Provider, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("download failed")
		}
		return &fakeProvider{dim: 4}, nil
	}, 4, nil, nil)

	require.Error(t, g.Init(context.Background()))
	assert.False(t, g.Ready())
	require.NoError(t, g.Init(context.Background()))
	assert.True(t, g.Ready())
}

func TestGateway_InitDimensionMismatch(t *testing.T) {
	p := &fakeProvider{dim: 768}
	g := NewGateway(staticFactory(p, nil), 384, nil, nil)

	err := g.Init(context.Background())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.True(t, p.closed.Load())
	assert.False(t, g.Ready())
}

func TestGateway_EmbedPreservesOrder(t *testing.T) {
	g := NewGateway(staticFactory(&fakeProvider{dim: 3}, nil), 3, nil, nil)
	require.NoError(t, g.Init(context.Background()))

	vectors, err := g.Embed(context.Background(), []string{"a", "bbb", "cc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(3), vectors[1][0])
	assert.Equal(t, float32(2), vectors[2][0])
}

func TestGateway_EmbedEmpty(t *testing.T) {
	g := NewGateway(staticFactory(&fakeProvider{dim: 3}, nil), 3, nil, nil)
	require.NoError(t, g.Init(context.Background()))

	vectors, err := g.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestGateway_EmbedShortResponse(t *testing.T) {
	g := NewGateway(staticFactory(&fakeProvider{dim: 3, short: true}, nil), 3, nil, nil)
	require.NoError(t, g.Init(context.Background()))

	_, err := g.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestGateway_ProviderErrorWrapped(t *testing.T) {
	providerErr := errors.New("onnx session closed")
	g := NewGateway(staticFactory(&fakeProvider{dim: 3, err: providerErr}, nil), 3, nil, nil)
	require.NoError(t, g.Init(context.Background()))

	_, err := g.EmbedOne(context.Background(), "q")
	assert.ErrorIs(t, err, providerErr)
}

func TestGateway_CloseResetsReadiness(t *testing.T) {
	p := &fakeProvider{dim: 3}
	g := NewGateway(staticFactory(p, nil), 3, nil, nil)
	require.NoError(t, g.Init(context.Background()))

	require.NoError(t, g.Close())
	assert.True(t, p.closed.Load())
	assert.False(t, g.Ready())
	assert.NoError(t, g.Close())
}

func TestFactoryFromConfig(t *testing.T) {
	t.Run("fastembed unknown model", func(t *testing.T) {
		_, err := FactoryFromConfig(&config.Config{
			EmbeddingProvider: config.EmbeddingProviderFastEmbed,
			EmbeddingModel:    "nope/model",
		})
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})

	t.Run("openai without key", func(t *testing.T) {
		_, err := FactoryFromConfig(&config.Config{EmbeddingProvider: config.EmbeddingProviderOpenAI})
		assert.Error(t, err)
	})

	t.Run("openai builds client", func(t *testing.T) {
		f, err := FactoryFromConfig(&config.Config{
			EmbeddingProvider:   config.EmbeddingProviderOpenAI,
			EmbeddingModel:      DefaultFastEmbedModel,
			EmbeddingDimensions: 384,
			OpenAIAPIKey:        "sk-test",
		})
		require.NoError(t, err)
		p, err := f(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
		assert.Equal(t, 384, p.Dimension())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := FactoryFromConfig(&config.Config{EmbeddingProvider: "tei"})
		assert.Error(t, err)
	})
}

func TestFastEmbedDimension(t *testing.T) {
	d, ok := FastEmbedDimension("BAAI/bge-small-en-v1.5")
	assert.True(t, ok)
	assert.Equal(t, 384, d)

	_, ok = FastEmbedDimension("unknown")
	assert.False(t, ok)
}
