package embed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkContent_CoversEntireRange(t *testing.T) {
	content := strings.Repeat("word ", 1000) // 5000 chars
	spans := ChunkContent(content, DefaultMaxChars, DefaultOverlapChars)
	require.NotEmpty(t, spans)

	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, len([]rune(content)), spans[len(spans)-1].End)

	for i := 1; i < len(spans); i++ {
		assert.LessOrEqual(t, spans[i].Start, spans[i-1].End, "chunks must not leave a gap")
	}
}

func TestChunkContent_EmptyContentYieldsNoChunks(t *testing.T) {
	assert.Empty(t, ChunkContent("", DefaultMaxChars, DefaultOverlapChars))
}

func TestChunkContent_ShortContentIsSingleChunk(t *testing.T) {
	spans := ChunkContent("hello world", DefaultMaxChars, DefaultOverlapChars)
	require.Len(t, spans, 1)
	assert.Equal(t, "hello world", spans[0].Text)
}

func TestChunkContent_SnapsToWhitespace(t *testing.T) {
	content := strings.Repeat("a", 2000) + " " + strings.Repeat("b", 2000)
	spans := ChunkContent(content, 2048, 200)
	require.GreaterOrEqual(t, len(spans), 1)
	// The first chunk should not split a run of 'b's mid-word if a
	// whitespace boundary is reachable within the lookback window: it
	// ends just past the space at index 2000.
	assert.Equal(t, 2001, spans[0].End)
	for _, s := range spans {
		assert.NotEmpty(t, s.Text)
	}
}
