package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name         string
		maxChunkSize int
		overlap      int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.maxChunkSize, tt.overlap)
			require.Error(t, err)

			_, err = NewSliding(tt.maxChunkSize, tt.overlap)
			require.Error(t, err)
		})
	}
}

func TestNew_OverlapSentinel(t *testing.T) {
	_, err := New(10, 10)
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestSplit_EmptyInput(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	chunks := c.Split("Strength training improves bone density. Sleep aids recovery.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "bone density")
	assert.Contains(t, chunks[0], "Sleep aids recovery")
}

func TestSplit_SentenceMode_NeverSplitsSentences(t *testing.T) {
	// Four sentences of five words each, chunk bound of eight words: no
	// boundary may fall inside a sentence.
	var sentences []string
	for i := 0; i < 4; i++ {
		sentences = append(sentences, fmt.Sprintf("sentence %d has five words.", i))
	}
	text := strings.Join(sentences, " ")

	c, err := New(8, 0)
	require.NoError(t, err)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, strings.HasSuffix(chunk, "."), "chunk should end on a sentence boundary: %q", chunk)
	}
}

func TestSplit_SentenceMode_AppliesOverlap(t *testing.T) {
	text := "one two three four five. six seven eight nine ten. eleven twelve thirteen fourteen fifteen."

	c, err := New(10, 2)
	require.NoError(t, err)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	// Trailing overlap words of chunk i reappear at the start of chunk i+1.
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		tail := prev[len(prev)-2:]
		assert.Equal(t, tail, cur[:2], "chunk %d should start with the previous chunk's tail", i)
	}
}

func TestSplit_SentenceMode_BoundHoldsWithOverlap(t *testing.T) {
	// Three 8-word sentences against a 10-word budget with a 5-word
	// overlap: the carried words leave only 2 free slots, so the carry
	// must shrink rather than push a chunk over the bound.
	var sentences []string
	for i := 0; i < 3; i++ {
		sentences = append(sentences, fmt.Sprintf("s%d one two three four five six seven.", i))
	}
	text := strings.Join(sentences, " ")

	c, err := New(10, 5)
	require.NoError(t, err)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(chunk)), 10, "chunk over budget: %q", chunk)
	}

	// The trimmed carry still links adjacent chunks.
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		assert.Equal(t, prev[len(prev)-2:], cur[:2], "chunk %d should start with the previous chunk's tail", i)
	}
}

func TestSplit_SentenceMode_OversizedSentence(t *testing.T) {
	words := make([]string, 30)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " ") + "."

	c, err := New(10, 0)
	require.NoError(t, err)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(chunk)), 10)
	}
}

func TestSplit_SlidingMode_ExactPartitionWithoutOverlap(t *testing.T) {
	words := make([]string, 25)
	for i := range words {
		words[i] = fmt.Sprintf("tok%d", i)
	}
	text := strings.Join(words, " ")

	c, err := NewSliding(10, 0)
	require.NoError(t, err)

	chunks := c.Split(text)
	require.Len(t, chunks, 3)

	var rejoined []string
	for _, chunk := range chunks {
		fields := strings.Fields(chunk)
		assert.LessOrEqual(t, len(fields), 10)
		rejoined = append(rejoined, fields...)
	}
	assert.Equal(t, words, rejoined, "chunks with zero overlap must partition the input exactly")
}

func TestSplit_SlidingMode_RoundTripWithOverlap(t *testing.T) {
	words := make([]string, 40)
	for i := range words {
		words[i] = fmt.Sprintf("tok%d", i)
	}
	text := strings.Join(words, " ")

	overlap := 3
	c, err := NewSliding(10, overlap)
	require.NoError(t, err)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	// Concatenating each chunk minus the carried prefix reconstructs the
	// original token sequence.
	rejoined := strings.Fields(chunks[0])
	for _, chunk := range chunks[1:] {
		fields := strings.Fields(chunk)
		rejoined = append(rejoined, fields[overlap:]...)
	}
	assert.Equal(t, words, rejoined)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(chunk)), 10)
	}
}

func TestSplit_SlidingMode_SingleChunk(t *testing.T) {
	c, err := NewSliding(100, 10)
	require.NoError(t, err)

	chunks := c.Split("just a few words here")
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a few words here", chunks[0])
}

func TestSplitSentences_KeepsUnterminatedTail(t *testing.T) {
	sentences := splitSentences("First sentence. Second without terminator")
	require.Len(t, sentences, 2)
	assert.Equal(t, "First sentence.", sentences[0])
	assert.Equal(t, "Second without terminator", sentences[1])
}
