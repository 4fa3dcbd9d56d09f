package service

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChunkText_EmptyInput(t *testing.T) {
	assert.Empty(t, chunkText("", DefaultChunkConfig()))
	assert.Empty(t, chunkText("   \n\t  \r\n", DefaultChunkConfig()))
}

func TestChunkText_ShortInputSingleChunk(t *testing.T) {
	chunks := chunkText("  hello \n\n  world  ", DefaultChunkConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkText_NormalizesWhitespace(t *testing.T) {
	chunks := chunkText("a\n\n b\t\tc   d", DefaultChunkConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "a b c d", chunks[0])
}

func TestChunkText_RepeatedWordsSnapToSpace(t *testing.T) {
	text := strings.Repeat("a ", 500)

	chunks := chunkText(text, ChunkConfig{Size: 800, Overlap: 100})

	require.Len(t, chunks, 2)
	assert.Equal(t, 799, len(chunks[0]))
	assert.Equal(t, 199, len(chunks[1]))
	assert.Equal(t, normalizeWhitespace(text), chunks[0]+" "+chunks[1])
}

func TestChunkText_NoSpacesHardCut(t *testing.T) {
	text := strings.Repeat("x", 2000)

	chunks := chunkText(text, ChunkConfig{Size: 800, Overlap: 100})

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 800)
	assert.Len(t, chunks[1], 800)
	assert.Len(t, chunks[2], 400)
}

func TestChunkText_EarlySpaceDoesNotSnap(t *testing.T) {
	text := "ab " + strings.Repeat("x", 1000)

	chunks := chunkText(text, ChunkConfig{Size: 800, Overlap: 100})

	require.Len(t, chunks, 2)
	assert.Equal(t, 800, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, text[:800], chunks[0])
}

func TestChunkText_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 1000)

	chunks := chunkText(text, ChunkConfig{Size: 800, Overlap: 100})

	require.Len(t, chunks, 2)
	assert.Equal(t, 800, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 200, utf8.RuneCountInString(chunks[1]))
}

func TestChunkText_SizeNotAboveOverlapTerminates(t *testing.T) {
	text := strings.Repeat("word ", 100)

	chunks := chunkText(text, ChunkConfig{Size: 10, Overlap: 50})

	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
	}
}

func TestChunkText_ZeroSizeUsesDefaults(t *testing.T) {
	text := strings.Repeat("x", 1000)
	assert.Equal(t, chunkText(text, DefaultChunkConfig()), chunkText(text, ChunkConfig{}))
}

func TestChunkText_Deterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 200)
	cfg := ChunkConfig{Size: 120, Overlap: 30}
	assert.Equal(t, chunkText(text, cfg), chunkText(text, cfg))
}

func randomText(r *rand.Rand, n int) string {
	words := []string{"a", "lorem", "ipsum", "dolor", "sit", "amet", "консектетур", "\n\n", "\t", "x"}
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(words[r.Intn(len(words))])
		if r.Intn(4) > 0 {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestChunkSpans_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	configs := []ChunkConfig{
		{Size: 800, Overlap: 100},
		{Size: 50, Overlap: 10},
		{Size: 7, Overlap: 0},
		{Size: 5, Overlap: 5},
		{Size: 3, Overlap: 20},
	}

	for i := 0; i < 50; i++ {
		text := randomText(r, 1+r.Intn(3000))
		runes := []rune(normalizeWhitespace(text))
		if len(runes) == 0 {
			continue
		}

		for _, cfg := range configs {
			spans := chunkSpans(runes, cfg)
			require.NotEmpty(t, spans)

			// Windows are contiguous and cover the normalized string.
			assert.Equal(t, 0, spans[0].start)
			assert.Equal(t, len(runes), spans[len(spans)-1].end)
			for j := 1; j < len(spans); j++ {
				assert.Equal(t, spans[j-1].end, spans[j].start, "gap or overlap beyond the bound")
				assert.Greater(t, spans[j].end, spans[j-1].end)
			}

			minSnap := float64(cfg.Size) * minSnapFraction
			for _, s := range spans {
				assert.LessOrEqual(t, s.end-s.start, cfg.Size)
				if s.end == len(runes) {
					continue
				}
				hasLateSpace := false
				for k := int(float64(s.start)+minSnap) + 1; k < s.start+cfg.Size && k < len(runes); k++ {
					if runes[k] == ' ' {
						hasLateSpace = true
						break
					}
				}
				if hasLateSpace {
					assert.Greater(t, float64(s.end), float64(s.start)+minSnap)
				}
			}

			assert.NotEmpty(t, chunkText(text, cfg))
		}
	}
}

func TestNewChunker_WarnsWhenOverlapNotBelowSize(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	NewChunker(ChunkConfig{Size: 100, Overlap: 100}, zap.New(core))

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "overlap degrades to zero")
}

func TestNewChunker_NoWarningForDefaults(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	c := NewChunker(DefaultChunkConfig(), zap.New(core))

	assert.Equal(t, 0, logs.Len())
	assert.Equal(t, DefaultChunkConfig(), c.Config())
	assert.Equal(t, []string{"one two"}, c.Chunk(" one\ntwo "))
}
