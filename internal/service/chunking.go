package service

import (
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100

	// A snapped boundary must lie past this fraction of the window.
	minSnapFraction = 0.6
)

// ChunkConfig controls how normalized text is split into windows.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides the default 800/100 window.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    DefaultChunkSize,
		Overlap: DefaultChunkOverlap,
	}
}

// Chunker splits document text into boundary-aware windows.
type Chunker struct {
	cfg    ChunkConfig
	logger *zap.Logger
}

// NewChunker validates cfg, falling back to defaults for a non-positive
// size, and warns when the overlap can never be honored.
func NewChunker(cfg ChunkConfig, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Size <= cfg.Overlap {
		logger.Warn("chunk size does not exceed overlap, overlap degrades to zero",
			zap.Int("chunk_size", cfg.Size),
			zap.Int("overlap", cfg.Overlap),
		)
	}
	return &Chunker{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

// Chunk returns the ordered chunk strings for text.
func (c *Chunker) Chunk(text string) []string {
	return chunkText(text, c.cfg)
}

// normalizeWhitespace collapses every whitespace run to one space and trims.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

type chunkSpan struct {
	start, end int
}

// chunkSpans walks the normalized runes and returns the [start, end) window
// of every step, in order. Offsets are rune offsets.
func chunkSpans(runes []rune, cfg ChunkConfig) []chunkSpan {
	n := len(runes)
	spans := make([]chunkSpan, 0, n/cfg.Size+1)
	minSnap := minSnapFraction * float64(cfg.Size)

	start := 0
	for start < n {
		end := start + cfg.Size
		if end > n {
			end = n
		}

		if end < n {
			nearestSpace := -1
			for i := end - 1; i >= start; i-- {
				if runes[i] == ' ' {
					nearestSpace = i
					break
				}
			}
			if nearestSpace >= 0 && float64(nearestSpace) > float64(start)+minSnap {
				end = nearestSpace
			}
		}

		spans = append(spans, chunkSpan{start: start, end: end})

		// The overlap is clamped so start never moves backwards past end.
		next := end - cfg.Overlap
		if next < end {
			next = end
		}
		start = next
	}

	return spans
}

func chunkText(text string, cfg ChunkConfig) []string {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}

	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	spans := chunkSpans(runes, cfg)

	chunks := make([]string, 0, len(spans))
	for _, s := range spans {
		chunk := strings.TrimSpace(string(runes[s.start:s.end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
