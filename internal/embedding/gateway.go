// Package embedding holds the process-wide embedding model handle.
package embedding

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/metrics"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"go.uber.org/zap"
)

// Provider is a loaded embedding model.
type Provider interface {
	Name() string
	Dimension() int
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// Factory constructs a Provider. It is called at most once per Gateway
// unless it fails.
type Factory func(ctx context.Context) (Provider, error)

type loaded struct {
	provider Provider
}

// Gateway guards a single Provider instance. Init loads it exactly once;
// Embed and EmbedOne fail with ErrEmbeddingModelNotReady until then.
type Gateway struct {
	mu        sync.Mutex
	current   atomic.Pointer[loaded]
	factory   Factory
	dimension int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewGateway returns an uninitialized gateway. A positive dimension is
// enforced on the loaded model and on every vector it returns.
func NewGateway(factory Factory, dimension int, m *metrics.Metrics, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		factory:   factory,
		dimension: dimension,
		metrics:   m,
		logger:    logger,
	}
}

// Init loads the model if it has not been loaded yet. Concurrent callers
// block until the first load finishes and share its result.
func (g *Gateway) Init(ctx context.Context) error {
	if g.current.Load() != nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current.Load() != nil {
		return nil
	}

	start := time.Now()
	p, err := g.factory(ctx)
	if err != nil {
		return fmt.Errorf("loading embedding model: %w", err)
	}

	if g.dimension > 0 && p.Dimension() != g.dimension {
		_ = p.Close()
		return domain.WithCause(domain.ErrDimensionMismatch,
			fmt.Errorf("model %s produces %d dimensions, schema expects %d", p.Name(), p.Dimension(), g.dimension))
	}

	g.current.Store(&loaded{provider: p})
	g.logger.Info("embedding model loaded",
		zap.String("provider", p.Name()),
		zap.Int("dimension", p.Dimension()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Ready reports whether Init has completed successfully.
func (g *Gateway) Ready() bool {
	return g.current.Load() != nil
}

// Dimension returns the vector length produced by the gateway.
func (g *Gateway) Dimension() int {
	if l := g.current.Load(); l != nil {
		return l.provider.Dimension()
	}
	return g.dimension
}

// ProviderName returns the loaded provider's name, or "" before Init.
func (g *Gateway) ProviderName() string {
	if l := g.current.Load(); l != nil {
		return l.provider.Name()
	}
	return ""
}

// Embed converts passages to vectors, one per input in the same order.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	l := g.current.Load()
	if l == nil {
		return nil, domain.ErrEmbeddingModelNotReady
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "embedding.Embed", telemetry.SpanAttributes{Operation: "embed_passages"})
	defer span.End()

	start := time.Now()
	vectors, err := l.provider.EmbedPassages(ctx, texts)
	g.metrics.ObserveEmbed(l.provider.Name(), time.Since(start))
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("embedding %d passages: %w", len(texts), err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for _, v := range vectors {
		if err := g.checkDimension(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// EmbedOne converts a single query string to a vector.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	l := g.current.Load()
	if l == nil {
		return nil, domain.ErrEmbeddingModelNotReady
	}

	ctx, span := telemetry.StartSpan(ctx, "embedding.EmbedOne", telemetry.SpanAttributes{Operation: "embed_query"})
	defer span.End()

	start := time.Now()
	v, err := l.provider.EmbedQuery(ctx, text)
	g.metrics.ObserveEmbed(l.provider.Name(), time.Since(start))
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if err := g.checkDimension(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (g *Gateway) checkDimension(v []float32) error {
	if g.dimension > 0 && len(v) != g.dimension {
		return domain.WithCause(domain.ErrDimensionMismatch,
			fmt.Errorf("got vector of length %d, expected %d", len(v), g.dimension))
	}
	return nil
}

// Close releases the loaded model. The gateway is not ready afterwards.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	l := g.current.Swap(nil)
	if l == nil {
		return nil
	}
	return l.provider.Close()
}
